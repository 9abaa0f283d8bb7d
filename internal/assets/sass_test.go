package assets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSassCompiler_noBinary(t *testing.T) {
	s := newSassCompiler("", nil, false)

	_, err := s.Compile("/site/src/main.scss", "$c: red; a { color: $c; }")
	require.ErrorIs(t, err, ErrSassUnavailable)
	require.NoError(t, s.Close())
}

func TestIsSass(t *testing.T) {
	require.True(t, isSass("main.scss"))
	require.True(t, isSass("legacy.SASS"))
	require.False(t, isSass("plain.css"))
}

func TestBuild_sassWithoutBinary(t *testing.T) {
	p := newProject(t)
	p.write(t, "src/theme.scss", "$accent: #ff0000;\n.accent { color: $accent; }\n")
	p.write(t, "src/leave.js", "import \"./theme.scss\";\ndocument.title = \"leave\";\n")

	pipeline, err := New(p.config(t))
	require.NoError(t, err)

	_, err = pipeline.Build(context.Background())
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Contains(t, buildErr.Error(), "sass.binary")
}

package assets

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/sitepack/internal/config"
)

const assetNamespace = "sitepack-asset"

// skipAssets marks nested resolves issued by the asset plugin itself.
type skipAssets struct{}

// emitter collects assets that are written once the build succeeds. esbuild
// runs plugin callbacks concurrently.
type emitter struct {
	mu     sync.Mutex
	files  map[string][]byte
	assets map[string]Asset
}

func newEmitter() *emitter {
	return &emitter{
		files:  make(map[string][]byte),
		assets: make(map[string]Asset),
	}
}

func (e *emitter) record(asset Asset, content []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.assets[asset.Source] = asset
	if asset.Disposition == Emit {
		e.files[asset.Path] = content
	}
}

// Assets returns every resolved asset ordered by source path.
func (e *emitter) Assets() []Asset {
	e.mu.Lock()
	defer e.mu.Unlock()

	sources := slices.Sorted(maps.Keys(e.assets))
	out := make([]Asset, 0, len(sources))
	for _, src := range sources {
		out = append(out, e.assets[src])
	}
	return out
}

// Files returns the content of every emitted asset keyed by output path.
func (e *emitter) Files() map[string][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	return maps.Clone(e.files)
}

// aliasPlugin rewrites imports starting with a configured prefix to the
// aliased directory, e.g. "@/util/dom" -> "<src>/util/dom".
func aliasPlugin(aliases map[string]string) api.Plugin {
	return api.Plugin{
		Name: "alias",
		Setup: func(build api.PluginBuild) {
			for _, prefix := range slices.Sorted(maps.Keys(aliases)) {
				dir := aliases[prefix]
				filter := "^" + regexp.QuoteMeta(prefix) + "(/|$)"

				build.OnResolve(api.OnResolveOptions{Filter: filter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					target := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(args.Path, prefix)))

					result := build.Resolve(target, api.ResolveOptions{
						Importer:   args.Importer,
						ResolveDir: args.ResolveDir,
						Kind:       args.Kind,
						PluginData: args.PluginData,
					})
					if len(result.Errors) > 0 {
						return api.OnResolveResult{Errors: result.Errors}, nil
					}

					return api.OnResolveResult{
						Path:       result.Path,
						External:   result.External,
						Namespace:  result.Namespace,
						PluginData: result.PluginData,
					}, nil
				})
			}
		},
	}
}

// assetPlugin applies the size gate to every import matched by an asset
// rule. Inlined assets become data URLs, larger ones are queued on the
// emitter and referenced by their public URL.
func assetPlugin(rules Rules, publicPath string, out *emitter) api.Plugin {
	return api.Plugin{
		Name: "assets",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if _, skip := args.PluginData.(skipAssets); skip {
					return api.OnResolveResult{}, nil
				}
				if isRemote(args.Path) {
					return api.OnResolveResult{}, nil
				}

				rule := rules.Match(stripSuffix(args.Path))
				if rule == nil || rule.Use != config.PipelineAsset {
					return api.OnResolveResult{}, nil
				}

				resolved := build.Resolve(stripSuffix(args.Path), api.ResolveOptions{
					Importer:   args.Importer,
					ResolveDir: args.ResolveDir,
					Kind:       args.Kind,
					PluginData: skipAssets{},
				})
				if len(resolved.Errors) > 0 {
					return api.OnResolveResult{Errors: resolved.Errors}, nil
				}
				if resolved.External || resolved.Namespace != "file" {
					return api.OnResolveResult{Path: resolved.Path, External: resolved.External, Namespace: resolved.Namespace}, nil
				}

				// exclusions are matched against the resolved location
				rule = rules.Match(resolved.Path)
				if rule == nil || rule.Use != config.PipelineAsset {
					return api.OnResolveResult{Path: resolved.Path}, nil
				}

				content, err := os.ReadFile(resolved.Path)
				if err != nil {
					return api.OnResolveResult{}, fmt.Errorf("failed to read asset: %w", err)
				}

				asset := ResolveAsset(rule, publicPath, resolved.Path, content)
				out.record(asset, content)

				if isCSSKind(args.Kind) {
					return api.OnResolveResult{Path: asset.Ref, External: true}, nil
				}

				return api.OnResolveResult{
					Path:       resolved.Path,
					Namespace:  assetNamespace,
					PluginData: asset.Ref,
				}, nil
			})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: assetNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				ref, ok := args.PluginData.(string)
				if !ok {
					return api.OnLoadResult{}, fmt.Errorf("asset %s was not resolved", args.Path)
				}

				quoted, err := json.Marshal(ref)
				if err != nil {
					return api.OnLoadResult{}, err
				}

				contents := "export default " + string(quoted) + ";\n"
				return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
			})
		},
	}
}

// rulesPlugin loads files through the pipeline of their first matching rule.
// HTML fragments have their resource references resolved before they are
// imported as a string.
func rulesPlugin(rules Rules, sass *sassCompiler, refs *References, publicPath string) api.Plugin {
	return api.Plugin{
		Name: "rules",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				rule := rules.Match(args.Path)
				if rule == nil {
					return api.OnLoadResult{}, nil
				}

				var loader api.Loader
				switch rule.Use {
				case config.PipelineScript:
					loader = api.LoaderJS
				case config.PipelineHTML:
					loader = api.LoaderText
				case config.PipelineStyle:
					loader = api.LoaderCSS
				default:
					return api.OnLoadResult{}, nil
				}

				data, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				contents := string(data)

				switch {
				case rule.Use == config.PipelineStyle && isSass(args.Path):
					contents, err = sass.Compile(args.Path, contents)
				case rule.Use == config.PipelineHTML:
					contents, err = refs.RewriteFragment(args.Path, contents, publicPath)
				}
				if err != nil {
					return api.OnLoadResult{
						Errors: []api.Message{{Text: err.Error()}},
					}, nil
				}

				return api.OnLoadResult{
					Contents:   &contents,
					ResolveDir: filepath.Dir(args.Path),
					Loader:     loader,
				}, nil
			})
		},
	}
}

func isCSSKind(kind api.ResolveKind) bool {
	switch kind {
	case api.ResolveCSSURLToken, api.ResolveCSSImportRule, api.ResolveCSSComposesFrom:
		return true
	}
	return false
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "data:") ||
		strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "//")
}

// stripSuffix drops query and fragment parts such as "font.eot?#iefix".
func stripSuffix(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}

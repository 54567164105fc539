package flowrun

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/openmined/biovault-desktop/internal/shapeexpr"
)

// Asset is one file available to a dataset-driven selection: an absolute
// path plus an optional declared key (spec §4.3 step 2's Map key rule:
// "declared key, or stem, or UUID").
type Asset struct {
	Path string
	Key  string
}

// ResolveSelection materializes req's selection into the results
// directory's inputs/ folder (spec §4.3 step 2).
func ResolveSelection(resultsDir string, sel *Selection) error {
	inputsDir := filepath.Join(resultsDir, "inputs")
	if err := os.MkdirAll(inputsDir, 0755); err != nil {
		return errIO("flowrun.ResolveSelection", "create inputs directory", err)
	}

	switch sel.Kind {
	case "urls":
		return writeSamplesheet(inputsDir, sel.URLs)
	case "file_ids":
		// Participant-catalog lookup is a C6 adapter concern; this module
		// only owns turning resolved paths into a samplesheet, identical
		// to the URL path once ids have been mapped to local paths by the
		// adapter that calls ResolveSelection.
		return writeSamplesheet(inputsDir, sel.FileIDs)
	case "dataset":
		return resolveDatasetSelection(inputsDir, sel)
	default:
		return errValidation("flowrun.ResolveSelection", "unknown selection kind: "+sel.Kind)
	}
}

// writeSamplesheet writes results/inputs/selected_participants.csv with
// columns participant_id, genotype_file, de-duplicating by path.
func writeSamplesheet(inputsDir string, paths []string) error {
	seen := map[string]struct{}{}
	f, err := os.Create(filepath.Join(inputsDir, "selected_participants.csv"))
	if err != nil {
		return errIO("flowrun.ResolveSelection", "create samplesheet", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"participant_id", "genotype_file"}); err != nil {
		return errIO("flowrun.ResolveSelection", "write samplesheet header", err)
	}

	i := 0
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		if _, err := os.Stat(p); err != nil {
			return errValidation("flowrun.ResolveSelection", "selected path does not exist: "+p)
		}
		i++
		id := fmt.Sprintf("p%d", i)
		if err := w.Write([]string{id, p}); err != nil {
			return errIO("flowrun.ResolveSelection", "write samplesheet row", err)
		}
	}
	return nil
}

func resolveDatasetSelection(inputsDir string, sel *Selection) error {
	var t *shapeexpr.Type
	if sel.ShapeExpr != "" {
		parsed, err := shapeexpr.Parse(sel.ShapeExpr)
		if err != nil {
			return errValidation("flowrun.ResolveSelection", "unparseable shape expression: "+err.Error())
		}
		t = parsed
	}
	// Without an explicit shape, the caller is expected to have inferred
	// one via InferShape and set ShapeExpr accordingly before calling in.
	if t == nil {
		return errValidation("flowrun.ResolveSelection", "dataset selection requires a shape")
	}

	value, err := buildInputValue(t, sel.Assets())
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errIO("flowrun.ResolveSelection", "marshal dataset input", err)
	}
	name := sel.DataType
	if name == "" {
		name = "samplesheet"
	}
	return os.WriteFile(filepath.Join(inputsDir, name+"_input.json"), raw, 0644)
}

// Assets is populated by the adapter resolving sel.Dataset into a concrete
// asset list; stored here (rather than as a Selection field sent over the
// wire) to keep the wire-format Selection small.
func (s *Selection) Assets() []Asset { return s.assets }

// SetAssets attaches the resolved asset list used by dataset-kind
// selections.
func (s *Selection) SetAssets(assets []Asset) { s.assets = assets }

// InferShape infers a dataset's shape from its asset list (spec S5): when
// every stem shares the same extension set, the shape is
// Map[String, Record{ext: File, ...}]; a single asset is a bare File.
func InferShape(assets []Asset) *shapeexpr.Type {
	if len(assets) == 0 {
		return nil
	}
	if len(assets) == 1 {
		return &shapeexpr.Type{Kind: shapeexpr.KindFile}
	}

	byStem := map[string][]string{}
	var order []string
	for _, a := range assets {
		stem := stemOf(a.Path)
		if _, ok := byStem[stem]; !ok {
			order = append(order, stem)
		}
		byStem[stem] = append(byStem[stem], extOf(a.Path))
	}

	var refExts []string
	consistent := true
	for i, stem := range order {
		exts := append([]string(nil), byStem[stem]...)
		sort.Strings(exts)
		if i == 0 {
			refExts = exts
			continue
		}
		if strings.Join(exts, ",") != strings.Join(refExts, ",") {
			consistent = false
			break
		}
	}

	if !consistent || len(refExts) < 2 {
		return &shapeexpr.Type{Kind: shapeexpr.KindList, Elem: &shapeexpr.Type{Kind: shapeexpr.KindFile}}
	}

	fields := map[string]*shapeexpr.Type{}
	for _, ext := range refExts {
		fields[ext] = &shapeexpr.Type{Kind: shapeexpr.KindFile}
	}
	return &shapeexpr.Type{
		Kind:   shapeexpr.KindMap,
		MapKey: shapeexpr.KindString,
		Elem:   &shapeexpr.Type{Kind: shapeexpr.KindRecord, Fields: fields, Order: refExts},
	}
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// buildInputValue materializes t against assets per spec §4.3 step 2's
// per-kind rules.
func buildInputValue(t *shapeexpr.Type, assets []Asset) (any, error) {
	switch t.Kind {
	case shapeexpr.KindFile, shapeexpr.KindDirectory:
		if len(assets) == 0 {
			if t.Optional {
				return nil, nil
			}
			return nil, errValidation("flowrun.buildInputValue", "no matching asset for "+string(t.Kind))
		}
		return assets[0].Path, nil

	case shapeexpr.KindRecord:
		out := map[string]any{}
		for _, field := range t.Order {
			ft := t.Fields[field]
			match := findByExtension(assets, field)
			if match == nil {
				if ft.Optional {
					continue
				}
				return nil, errValidation("flowrun.buildInputValue", "missing record field: "+field)
			}
			out[field] = match.Path
		}
		return out, nil

	case shapeexpr.KindMap:
		groups := groupByKey(assets)
		out := map[string]any{}
		for key, group := range groups {
			v, err := buildInputValue(t.Elem, group)
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil

	case shapeexpr.KindList:
		paths := make([]string, 0, len(assets))
		for _, a := range assets {
			paths = append(paths, a.Path)
		}
		return paths, nil

	default:
		if len(assets) == 0 {
			return nil, nil
		}
		return assets[0].Path, nil
	}
}

func findByExtension(assets []Asset, ext string) *Asset {
	for i := range assets {
		if extOf(assets[i].Path) == strings.ToLower(ext) {
			return &assets[i]
		}
	}
	return nil
}

// groupByKey groups assets for a Map[String, _] shape: by declared Key if
// set, else by filename stem, else a fresh UUID per asset (spec §4.3).
func groupByKey(assets []Asset) map[string][]Asset {
	out := map[string][]Asset{}
	for _, a := range assets {
		key := a.Key
		if key == "" {
			key = stemOf(a.Path)
		}
		if key == "" {
			key = uuid.New().String()
		}
		out[key] = append(out[key], a)
	}
	return out
}

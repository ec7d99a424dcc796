package fprules

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/OpenTraceLab/klcheck/pkg/kicad/footprint"
	"github.com/OpenTraceLab/klcheck/pkg/klc"
)

var urlRe = regexp.MustCompile(`https?://`)
var urlOnlyRe = regexp.MustCompile(`^https?://`)

// F9.1
func checkMetadata(ctx *klc.FootprintContext, r *klc.Result) {
	fp := ctx.Footprint

	if fp.Filename != "" {
		stem := strings.TrimSuffix(filepath.Base(fp.Filename), filepath.Ext(fp.Filename))
		if stem != fp.Name {
			r.Errorf("footprint name (in file) was '%s', but expected (from filename) '%s'.", fp.Name, stem)
		}
	}
	if val := fp.Value(); val != nil && val.Text != fp.Name {
		r.Errorf("Value label '%s' does not match filename '%s'", val.Text, fp.Name)
	}

	checkDescription(fp, r)
	checkTags(fp, r)

	// KiCad derives these fields itself; a footprint must not carry
	// its own copies.
	for _, name := range []string{"footprint", "datasheet", "description"} {
		for _, t := range fp.Texts {
			if strings.EqualFold(t.Kind, name) && t.Text != "" {
				r.Errorf("The '%s' field should not be set for a footprint: (have '%s')", name, t.Text)
			}
		}
	}

	if !klc.IsValidName(fp.Name, false) {
		r.Errorf("Module name '%s' contains invalid characters as per KLC 1.7", fp.Name)
	}
}

func checkDescription(fp *footprint.Footprint, r *klc.Result) {
	if fp.Descr == "" {
		r.Error("Description field is empty - add footprint description")
		return
	}
	if !urlRe.MatchString(fp.Descr) {
		r.Error("Description field does not contain a URL - add the URL to the datasheet")
	}
	if urlOnlyRe.MatchString(fp.Descr) {
		r.Error("Description contains only a URL - add more description before the URL")
	}
}

func checkTags(fp *footprint.Footprint, r *klc.Result) {
	if fp.Tags == "" {
		r.Error("Keyword field is empty - add keyword tags")
		return
	}
	for _, c := range []string{",", ";", ":"} {
		if strings.Contains(fp.Tags, c) {
			r.Errorf("Tags contain illegal character: ('%s')", c)
		}
	}
}

const sysmodPrefix = "${KICAD9_3DMODEL_DIR}/"

var oldSysmodPrefixRe = regexp.MustCompile(`^(\$\{KICAD[0-8]_3DMODEL_DIR\})/`)

// Suffixes that change the footprint but not its 3D representation.
var modelSuffixRe = regexp.MustCompile(`(_ThermalVias|_Pad[0-9.]*x[0-9.]*mm|_HandSolder|_CircularHoles)`)

// F9.3
func checkModels(ctx *klc.FootprintContext, r *klc.Result) {
	fp := ctx.Footprint

	if len(fp.Models) == 0 {
		if fp.IsVirtual() {
			r.Warning("Optional 3D model file path missing from the 3D model settings of the virtual footprint")
		} else {
			r.Error("3D model file path missing from the 3D model settings of the footprint")
		}
		return
	}

	if len(fp.Models) > 1 {
		r.Warning("More than one 3D model file path provided within the 3D model settings of the footprint")
	}

	for _, m := range fp.Models {
		checkOneModel(fp, m, r)
	}
}

func checkOneModel(fp *footprint.Footprint, m *footprint.Model, r *klc.Result) {
	flagged := false

	if m.Offset != [3]float64{0, 0, 0} {
		flagged = true
		r.Errorf("3D model offset is not {'x': 0, 'y': 0, 'z': 0}. Found {'x': %v, 'y': %v, 'z': %v}",
			m.Offset[0], m.Offset[1], m.Offset[2])
	}
	if m.Rotate != [3]float64{0, 0, 0} {
		flagged = true
		r.Errorf("3D model rotation is not {'x': 0, 'y': 0, 'z': 0}. Found {'x': %v, 'y': %v, 'z': %v}",
			m.Rotate[0], m.Rotate[1], m.Rotate[2])
	}
	if m.Scale != [3]float64{1, 1, 1} {
		flagged = true
		r.Errorf("3D model scale is not {'x': 1, 'y': 1, 'z': 1}. Found {'x': %v, 'y': %v, 'z': %v}",
			m.Scale[0], m.Scale[1], m.Scale[2])
	}
	if m.Hidden {
		flagged = true
		r.Error("3D model is hidden")
	}

	model := m.Path
	if strings.HasPrefix(model, sysmodPrefix) {
		model = strings.TrimPrefix(model, sysmodPrefix)
	} else if match := oldSysmodPrefixRe.FindStringSubmatch(model); match != nil {
		flagged = true
		r.Errorf("Model path starts with outdated prefix '%s/'; it should start with '%s'",
			match[1], sysmodPrefix)
		model = strings.TrimPrefix(model, match[1])
		model = strings.TrimPrefix(model, "/")
	} else {
		r.Warningf("Model path should start with '%s'", sysmodPrefix)
	}

	modelDir, filename := splitModelPath(model)

	ext := path.Ext(filename)
	modelFile := strings.TrimSuffix(filename, ext)
	if !strings.EqualFold(ext, ".step") {
		r.Error("Model is incompatible format (must be STEP file)")
		r.Extraf("3D model path: %s", model)
		return
	}

	fpDir := fp.LibraryDir() + ".3dshapes"
	fpName := fp.Name

	if modelDir != fpDir {
		flagged = true
		r.Errorf("3D model directory is different from footprint directory (found '%s', should be '%s')",
			modelDir, fpDir)
	}

	if modelFile != fpName {
		switch {
		case modelSuffixRe.ReplaceAllString(fpName, "") == modelFile:
			// The model is shared between suffixed variants of the
			// footprint, nothing to report.
		case strings.Contains(fpName, modelFile) || strings.Contains(modelFile, fpName):
			r.Warningf("3D model name is different from footprint name (found '%s', expected '%s'), but this might be intentional!",
				modelFile, fpName)
		default:
			flagged = true
			r.Warningf("3D model name is different from footprint name (found '%s', expected '%s')",
				modelFile, fpName)
		}
	}

	for _, match := range modelSuffixRe.FindAllStringSubmatch(modelFile, -1) {
		flagged = true
		r.Warningf("3D model name contains field that does not change 3D representation (found '%s')",
			match[1])
	}

	if !klc.IsValidName(modelFile, false) {
		flagged = true
		r.Errorf("3D model file path '%s' contains invalid characters", modelFile)
	}

	if flagged {
		r.Extraf("3D model path: %s", model)
	}
}

// splitModelPath separates the directory part of a model reference
// from the file name, tolerating Windows-style separators.
func splitModelPath(model string) (dir, file string) {
	parts := strings.Split(model, "/")
	if len(parts) <= 1 {
		parts = strings.Split(model, `\`)
	}
	if len(parts) <= 1 {
		return "", parts[0]
	}
	return strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1]
}

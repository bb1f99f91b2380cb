// Model bundle loading: a zip archive holding two opaque model blobs
// plus a JSON metadata document stored in the zip's comment field
// (not as a separate zip entry), grounded on model_loader.py's
// ModelLoader.load. The regime classifier and policy themselves are
// treated as opaque functions elsewhere in this package — this file
// only validates and exposes the metadata plus the raw blob bytes.
package predictor

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/oracle-trader/runtime/pkg/ctypes"
)

// SupportedVersions lists the model metadata format versions this
// loader accepts.
var SupportedVersions = []string{ctypes.ModelFormatVersion}

// RequiredMetadataKeys names the top-level metadata fields a bundle
// must carry.
var RequiredMetadataKeys = []string{
	"format_version", "symbol", "training_config", "regime_config", "policy_config", "actions",
}

// TrainingConfig carries the frozen cost parameters the twin must
// replicate exactly.
type TrainingConfig struct {
	SpreadPoints     float64   `json:"spread_points"`
	SlippagePoints   float64   `json:"slippage_points"`
	CommissionPerLot float64   `json:"commission_per_lot"`
	Point            float64   `json:"point"`
	PipValue         float64   `json:"pip_value"`
	Digits           int       `json:"digits"`
	LotSizes         []float64 `json:"lot_sizes"`
}

// RegimeConfig carries the regime classifier's own metadata.
type RegimeConfig struct {
	NStates int            `json:"n_states"`
	Extra   map[string]any `json:"-"`
}

// SymbolInfo names the symbol/timeframe a bundle was trained for.
type SymbolInfo struct {
	Name      string `json:"name"`
	Timeframe string `json:"timeframe"`
}

// Metadata is the bundle's JSON header, stored in the zip comment.
type Metadata struct {
	FormatVersion  string         `json:"format_version"`
	Symbol         SymbolInfo     `json:"symbol"`
	TrainingConfig TrainingConfig `json:"training_config"`
	RegimeConfig   RegimeConfig   `json:"regime_config"`
	PolicyConfig   map[string]any `json:"policy_config"`
	Actions        map[string]any `json:"actions"`
}

// ModelBundle is a fully loaded model: validated metadata plus the raw
// regime/policy blob bytes, which are opaque to this runtime.
type ModelBundle struct {
	Symbol      string
	Timeframe   string
	Metadata    Metadata
	RegimeBlob  []byte
	PolicyBlob  []byte
}

// LoadBundle opens a zip archive at path and validates it per the
// bundle format: metadata must live in the zip comment, declare a
// supported format_version, and the archive must contain the two
// symbol/timeframe-prefixed blob entries metadata.Symbol implies.
func LoadBundle(path string) (*ModelBundle, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("predictor: open bundle %s: %w", path, err)
	}
	defer zr.Close()

	if zr.Comment == "" {
		return nil, fmt.Errorf("predictor: bundle %s has no metadata (empty zip comment)", path)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(zr.Comment), &raw); err != nil {
		return nil, fmt.Errorf("predictor: parse metadata JSON: %w", err)
	}
	for _, key := range RequiredMetadataKeys {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("predictor: bundle %s missing required metadata key %q", path, key)
		}
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(zr.Comment), &meta); err != nil {
		return nil, fmt.Errorf("predictor: decode metadata: %w", err)
	}

	if !supportedVersion(meta.FormatVersion) {
		return nil, fmt.Errorf("predictor: unsupported format_version %q (supported: %v)", meta.FormatVersion, SupportedVersions)
	}

	prefix := fmt.Sprintf("%s_%s", meta.Symbol.Name, meta.Symbol.Timeframe)
	regimeFile := prefix + "_regime.bin"
	policyFile := prefix + "_policy.bin"

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	regimeEntry, ok := files[regimeFile]
	if !ok {
		return nil, fmt.Errorf("predictor: regime blob %s not found in bundle", regimeFile)
	}
	policyEntry, ok := files[policyFile]
	if !ok {
		return nil, fmt.Errorf("predictor: policy blob %s not found in bundle", policyFile)
	}

	regimeBytes, err := readZipEntry(regimeEntry)
	if err != nil {
		return nil, fmt.Errorf("predictor: read regime blob: %w", err)
	}
	policyBytes, err := readZipEntry(policyEntry)
	if err != nil {
		return nil, fmt.Errorf("predictor: read policy blob: %w", err)
	}

	return &ModelBundle{
		Symbol:     meta.Symbol.Name,
		Timeframe:  meta.Symbol.Timeframe,
		Metadata:   meta,
		RegimeBlob: regimeBytes,
		PolicyBlob: policyBytes,
	}, nil
}

func supportedVersion(v string) bool {
	for _, s := range SupportedVersions {
		if s == v {
			return true
		}
	}
	return false
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

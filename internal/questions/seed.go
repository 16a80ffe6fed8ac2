package questions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aa87864763/wanyongzhi/internal/models"
)

// DecodeEnvelope reads an export envelope in JSON or YAML. Unknown fields
// are rejected in both formats.
func DecodeEnvelope(data []byte, format string) (*models.ExportEnvelope, error) {
	var env models.ExportEnvelope

	switch format {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&env); err != nil {
			return nil, invalid(models.RuleBodyInvalid, "invalid YAML question file: %v", err)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&env); err != nil {
			return nil, invalid(models.RuleBodyInvalid, "invalid JSON question file: %v", err)
		}
	default:
		return nil, invalid(models.RuleBodyInvalid, "unsupported question file format %q", format)
	}

	return &env, nil
}

// LoadSeed imports the questions in path. The format follows the file
// extension.
func (s *Service) LoadSeed(ctx context.Context, path string) (*models.ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	env, err := DecodeEnvelope(data, format)
	if err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}

	result, err := s.Import(ctx, *env)
	if err != nil {
		return nil, fmt.Errorf("import seed file %s: %w", path, err)
	}
	return result, nil
}

package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"required-backend/internal/dsl"
	"required-backend/internal/logging"
)

// hclRuleFile is the top-level structure of an .hcl rule file, which may
// declare several rule sets:
//
//	ruleset "orders" {
//	  rule {
//	    trigger    = "coupon"
//	    dependency = "total > 0"
//	  }
//	}
type hclRuleFile struct {
	RuleSets []*RuleSet `hcl:"ruleset,block"`
}

// ParseFile reads the rule sets declared in one file. YAML and JSON files
// hold a single rule set, named after the file when the name is omitted.
func ParseFile(path string) ([]*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// Parse decodes rule sets from data, choosing the format by the extension
// of path.
func Parse(path string, data []byte) ([]*RuleSet, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".hcl":
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse %s: %w", path, diags)
		}
		var parsed hclRuleFile
		if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
			return nil, fmt.Errorf("decode %s: %w", path, diags)
		}
		return parsed.RuleSets, nil
	case ".yaml", ".yml", ".json":
		var rs RuleSet
		if ext == ".json" {
			err := json.Unmarshal(data, &rs)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if rs.Name == "" {
			rs.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		return []*RuleSet{&rs}, nil
	}
	return nil, fmt.Errorf("unsupported rule file %s", path)
}

// IsRuleFile reports whether name has a rule file extension.
func IsRuleFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".hcl", ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadDir compiles every rule file in dir and replaces the contents of reg
// with the result. Files or rule sets that fail to parse or compile are
// logged and skipped. It returns the number of rule sets loaded.
func LoadDir(ctx context.Context, dir string, compiler *dsl.Compiler, reg *Registry) (int, error) {
	logger := logging.FromContext(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read rules dir: %w", err)
	}

	var sets []*CompiledRuleSet
	seen := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || !IsRuleFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		parsed, err := ParseFile(path)
		if err != nil {
			logger.Warn("skipping rule file", "path", path, "error", err)
			continue
		}
		for _, rs := range parsed {
			if prev, ok := seen[rs.Name]; ok {
				logger.Warn("skipping duplicate rule set", "ruleset", rs.Name, "path", path, "first", prev)
				continue
			}
			compiled, err := Compile(rs, compiler, path)
			if err != nil {
				logger.Warn("skipping rule set", "ruleset", rs.Name, "path", path, "error", err)
				continue
			}
			seen[rs.Name] = path
			sets = append(sets, compiled)
		}
	}

	reg.Load(sets)
	logger.Info("loaded rule sets", "count", len(sets), "dir", dir)
	return len(sets), nil
}

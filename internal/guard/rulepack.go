package guard

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"gopkg.in/yaml.v3"
)

const defaultThreshold = 0.7

type rawRulepack struct {
	Version     int       `yaml:"version"`
	Threshold   float64   `yaml:"threshold"`
	Normalizers []string  `yaml:"normalizers"`
	Rules       []rawRule `yaml:"rules"`
}

type rawRule struct {
	ID      string   `yaml:"id"`
	Type    string   `yaml:"type"`
	Pattern string   `yaml:"pattern"`
	Phrases []string `yaml:"phrases"`
	Weight  float64  `yaml:"weight"`
}

type regexRule struct {
	ID      string
	Pattern *regexp.Regexp
	Weight  float64
}

type compiledPack struct {
	Threshold     float64
	RegexRules    []regexRule
	PhraseMatcher *ahocorasick.Matcher
	Phrases       []string
	PhraseWeights map[string]float64
}

// loadRulepacks 는 디렉터리의 YAML 룰팩을 읽어 컴파일한다.
// 깨진 파일은 경고만 남기고 건너뛴다. 룰팩 없이도 가드는 동작한다.
func loadRulepacks(dir string, logger *slog.Logger) []compiledPack {
	paths := findRulepackFiles(dir)
	if len(paths) == 0 {
		if logger != nil {
			logger.Warn("rulepacks_not_found", "dir", dir)
		}
		return nil
	}

	packs := make([]compiledPack, 0, len(paths))
	for _, path := range paths {
		pack, err := loadRulepackFile(path, logger)
		if err != nil {
			if logger != nil {
				logger.Warn("rulepack_load_failed", "path", path, "err", err)
			}
			continue
		}
		packs = append(packs, pack)
	}
	return packs
}

func loadRulepackFile(path string, logger *slog.Logger) (compiledPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return compiledPack{}, fmt.Errorf("read: %w", err)
	}

	var raw rawRulepack
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return compiledPack{}, fmt.Errorf("parse: %w", err)
	}
	return compileRulepack(raw, logger)
}

func findRulepackFiles(dir string) []string {
	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	return files
}

func compileRulepack(raw rawRulepack, logger *slog.Logger) (compiledPack, error) {
	if raw.Threshold == 0 {
		raw.Threshold = defaultThreshold
	}

	pack := compiledPack{
		Threshold:     raw.Threshold,
		PhraseWeights: make(map[string]float64),
	}

	for _, rule := range raw.Rules {
		switch strings.ToLower(strings.TrimSpace(rule.Type)) {
		case "regex":
			if rule.ID == "" || rule.Pattern == "" {
				return compiledPack{}, fmt.Errorf("invalid regex rule")
			}
			pattern, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				// 규칙 하나가 깨져도 나머지는 살린다.
				if logger != nil {
					logger.Warn("rulepack_regex_invalid", "rule_id", rule.ID, "err", err)
				}
				continue
			}
			pack.RegexRules = append(pack.RegexRules, regexRule{
				ID:      rule.ID,
				Pattern: pattern,
				Weight:  rule.Weight,
			})
		case "phrases":
			if rule.ID == "" || len(rule.Phrases) == 0 {
				return compiledPack{}, fmt.Errorf("invalid phrases rule")
			}
			for _, phrase := range rule.Phrases {
				value := strings.ToLower(phrase)
				pack.Phrases = append(pack.Phrases, value)
				pack.PhraseWeights[value] = rule.Weight
			}
		default:
			return compiledPack{}, fmt.Errorf("unknown rule type: %s", rule.Type)
		}
	}

	if len(pack.Phrases) > 0 {
		patterns := make([][]byte, 0, len(pack.Phrases))
		for _, phrase := range pack.Phrases {
			patterns = append(patterns, []byte(phrase))
		}
		pack.PhraseMatcher = ahocorasick.NewMatcher(patterns)
	}

	return pack, nil
}

package prompt

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadYAMLMapping 은 프롬프트 YAML 한 파일을 키-문자열 맵으로 읽는다.
// "system" 키가 있으면 정적 텍스트인지 함께 검증한다.
func LoadYAMLMapping(fsys fs.FS, filePath string) (map[string]string, error) {
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompt yaml: %w", err)
	}

	mapping := make(map[string]string, len(raw))
	for key, value := range raw {
		if value == nil {
			mapping[key] = ""
			continue
		}
		mapping[key] = fmt.Sprint(value)
	}

	if system := mapping["system"]; strings.TrimSpace(system) != "" {
		if err := ValidateSystemStatic(filePath, system); err != nil {
			return nil, err
		}
	}

	return mapping, nil
}

// LoadYAMLDir 는 디렉터리의 *.yml / *.yaml 프롬프트를 전부 읽는다.
// 반환 맵의 키는 확장자를 뺀 파일 이름이다.
func LoadYAMLDir(fsys fs.FS, dir string) (map[string]map[string]string, error) {
	var paths []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := fs.Glob(fsys, path.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob prompt dir: %w", err)
		}
		paths = append(paths, matches...)
	}

	prompts := make(map[string]map[string]string, len(paths))
	for _, filePath := range paths {
		mapping, err := LoadYAMLMapping(fsys, filePath)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))
		prompts[name] = mapping
	}
	return prompts, nil
}

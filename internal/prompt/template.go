package prompt

import (
	"fmt"
	"strings"
)

// FormatTemplate 는 {key} 자리를 값으로 치환한다.
// "{{" 와 "}}" 는 리터럴 중괄호로 취급한다.
func FormatTemplate(template string, values map[string]string) (string, error) {
	var builder strings.Builder
	builder.Grow(len(template))

	err := scanTemplate(template, func(literal string) {
		builder.WriteString(literal)
	}, func(key string) error {
		value, ok := values[key]
		if !ok {
			return fmt.Errorf("missing template value for %q", key)
		}
		builder.WriteString(value)
		return nil
	})
	if err != nil {
		return "", err
	}
	return builder.String(), nil
}

// ValidateSystemStatic 은 시스템 프롬프트에 치환 변수가 없는지 검사한다.
// 시스템 프롬프트는 정적 텍스트만 허용한다.
func ValidateSystemStatic(name string, system string) error {
	err := scanTemplate(system, func(string) {}, func(key string) error {
		return fmt.Errorf("system prompt must not contain template variables %q", key)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// scanTemplate 은 템플릿을 리터럴 구간과 변수로 나눠 콜백에 넘긴다.
func scanTemplate(template string, literal func(string), variable func(string) error) error {
	for i := 0; i < len(template); {
		switch template[i] {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				literal("{")
				i += 2
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return fmt.Errorf("invalid template: missing '}'")
			}
			if err := variable(template[i+1 : i+1+end]); err != nil {
				return err
			}
			i += end + 2
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				literal("}")
				i += 2
				continue
			}
			return fmt.Errorf("invalid template: unexpected '}'")
		default:
			next := strings.IndexAny(template[i:], "{}")
			if next < 0 {
				literal(template[i:])
				return nil
			}
			literal(template[i : i+next])
			i += next
		}
	}
	return nil
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

// EscapeXML: XML 텍스트로 안전하게 이스케이프합니다.
func EscapeXML(value string) string {
	return xmlEscaper.Replace(value)
}

// WrapXML 은 값을 이스케이프해서 XML 태그로 감싼다.
// 슬라이드 본문처럼 신뢰할 수 없는 입력을 프롬프트에 끼워 넣을 때 쓴다.
func WrapXML(tag string, value string) string {
	return "<" + tag + ">" + EscapeXML(value) + "</" + tag + ">"
}

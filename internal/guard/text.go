package guard

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/forPelevin/gomoji"
	"github.com/mtibben/confusables"
	"golang.org/x/text/unicode/norm"
)

// isASCIIOnly: 문자열이 ASCII만 포함하는지 확인 (Zero Allocation)
func isASCIIOnly(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// isBase64Char: Base64 문자셋 검사 (A-Za-z0-9+/-_)
func isBase64Char(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '+' || c == '/' || c == '-' || c == '_'
}

// containsSuspiciousBase64: 입력값 내에 숨겨진 악성 Base64 페이로드가 있는지 탐지
// 패턴 추출 방식: 입력 전체가 아닌, Base64 의심 패턴만 추출하여 검사
// 의미 기반 필터링: 디코딩된 결과가 '읽을 수 있는 텍스트'일 때만 차단
func containsSuspiciousBase64(input string) bool {
	n := len(input)
	i := 0

	for i < n {
		if !isBase64Char(input[i]) {
			i++
			continue
		}

		start := i
		for i < n && isBase64Char(input[i]) {
			i++
		}

		paddingCount := 0
		for i < n && input[i] == '=' && paddingCount < 2 {
			i++
			paddingCount++
		}

		seqLen := i - start
		// 최소 20자 이상이어야 의미 있는 Base64
		if seqLen < 20 {
			continue
		}

		match := input[start:i]
		decodedBytes, err := tryDecodeBase64(match)
		if err != nil {
			continue
		}

		if isReadableText(decodedBytes) {
			return true
		}
	}

	return false
}

// tryDecodeBase64: URL-Safe 문자 치환 및 패딩 보정 후 디코딩
func tryDecodeBase64(s string) ([]byte, error) {
	n := len(s)
	if n == 0 {
		return nil, fmt.Errorf("base64 decode: empty input")
	}

	padNeeded := (4 - n%4) % 4
	buf := make([]byte, n+padNeeded)

	for i := 0; i < n; i++ {
		switch s[i] {
		case '-':
			buf[i] = '+'
		case '_':
			buf[i] = '/'
		default:
			buf[i] = s[i]
		}
	}

	for i := 0; i < padNeeded; i++ {
		buf[n+i] = '='
	}

	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(buf)))
	written, err := base64.StdEncoding.Decode(decoded, buf)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	return decoded[:written], nil
}

// isReadableText: 바이트 배열이 사람이 읽을 수 있는 텍스트인지 판별
// UTF-8 유효성 검사 + 출력 가능 문자 비율 검사
func isReadableText(data []byte) bool {
	n := len(data)
	if n == 0 {
		return false
	}

	printableCount := 0
	totalChars := 0
	i := 0

	for i < n {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			// 유효하지 않은 UTF-8 → 바이너리 데이터
			return false
		}
		i += size
		totalChars++

		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printableCount++
		}
	}

	// 전체 문자의 90% 이상이 읽을 수 있는 문자라면 '의도된 텍스트'로 판단
	return totalChars > 0 && printableCount*100 > totalChars*90
}

// normalizeText: 검사 전 정규화 파이프라인.
// 슬라이드 본문에는 이모지가 정상적으로 섞여 있으므로 차단하지 않고
// 제거만 한다. 이후 homoglyph skeleton + NFKC 로 우회 문자를 펴준다.
func normalizeText(text string) string {
	text = stripEmoji(text)

	// [Fast Path] ASCII만 포함된 경우 Skeleton 변환 불필요
	if isASCIIOnly(text) {
		return stripControlChars(text)
	}

	// NFD 입력 우회 방지: 먼저 NFC로 정규화
	nfcText := norm.NFC.String(text)
	skeleton := confusables.Skeleton(nfcText)
	normalized := norm.NFKC.String(skeleton)
	return stripControlChars(normalized)
}

// stripEmoji: 이모지를 제거합니다.
// gomoji 라이브러리를 사용하여 최신 유니코드 이모지 표준을 자동 지원합니다.
func stripEmoji(text string) string {
	if !gomoji.ContainsEmoji(text) {
		return text
	}
	return gomoji.RemoveEmojis(text)
}

// stripControlChars: 불필요한 할당 방지
func stripControlChars(text string) string {
	hasControl := false
	for _, r := range text {
		if unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Cc, r) {
			hasControl = true
			break
		}
	}
	if !hasControl {
		return text
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range text {
		if unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Cc, r) {
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

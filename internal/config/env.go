package config

import (
	"os"
	"strconv"
	"strings"
)

// Google 공개 인증서 엔드포인트. Firebase ID 토큰 서명 키가 여기서 배포된다.
const defaultCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

func parseAPIKeys() []string {
	keysValue := strings.TrimSpace(os.Getenv("GOOGLE_API_KEYS"))
	if keysValue != "" {
		return splitKeys(keysValue)
	}
	key := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	if key == "" {
		return nil
	}
	return []string{key}
}

func splitKeys(value string) []string {
	items := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func getEnvString(key string, def string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	return value
}

func getEnvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvNonNegativeInt(key string, def int) int {
	value := getEnvInt(key, def)
	if value < 0 {
		return 0
	}
	return value
}

func getEnvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	value = strings.ToLower(value)
	return value == "true" || value == "1" || value == "yes" || value == "y"
}

func maskSecret(value string) string {
	if value == "" {
		return "<missing>"
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return value[:2] + "***" + value[len(value)-2:]
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

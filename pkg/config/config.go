// Package config는 viper 기반 설정 로더를 제공합니다.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config 인터페이스는 설정 값에 액세스하기 위한 메서드를 정의합니다.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetStringMap(key string) map[string]interface{}
	GetAll() map[string]interface{}
	// Decode는 병합된 설정 전체를 yaml 태그가 달린 구조체로 디코딩합니다.
	Decode(out interface{}) error
	// File은 실제로 읽은 설정 파일 경로를 반환합니다.
	File() string
}

type viperConfig struct {
	v *viper.Viper
}

func (c *viperConfig) GetString(key string) string { return c.v.GetString(key) }

func (c *viperConfig) GetInt(key string) int { return c.v.GetInt(key) }

func (c *viperConfig) GetBool(key string) bool { return c.v.GetBool(key) }

func (c *viperConfig) GetStringMap(key string) map[string]interface{} {
	return c.v.GetStringMap(key)
}

func (c *viperConfig) GetAll() map[string]interface{} {
	return c.v.AllSettings()
}

func (c *viperConfig) File() string {
	return c.v.ConfigFileUsed()
}

// Decode는 viper 설정(환경 변수 오버라이드 포함)을 yaml로 다시 인코딩한 뒤
// 대상 구조체로 디코딩합니다. 구조체의 yaml 태그를 그대로 사용하기 위함입니다.
func (c *viperConfig) Decode(out interface{}) error {
	raw, err := yaml.Marshal(scalarize(c.v.AllSettings()))
	if err != nil {
		return fmt.Errorf("설정 직렬화 실패: %w", err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("설정 디코딩 실패: %w", err)
	}
	return nil
}

// scalarize는 환경 변수로 들어온 문자열 값("9090", "true")을 yaml 스칼라 타입으로 되돌립니다.
func scalarize(settings map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(settings))
	for k, val := range settings {
		switch typed := val.(type) {
		case map[string]interface{}:
			out[k] = scalarize(typed)
		case string:
			var parsed interface{}
			if err := yaml.Unmarshal([]byte(typed), &parsed); err == nil {
				switch parsed.(type) {
				case int, float64, bool:
					out[k] = parsed
					continue
				}
			}
			out[k] = typed
		default:
			out[k] = val
		}
	}
	return out
}

// 설정 디렉토리 경로
const configDir = "configs"

// Load는 지정된 서비스 이름에 해당하는 설정 파일을 로드합니다.
//
// 탐색 순서: $CONFIG_PATH, configs/{APP_ENV}, configs.
// 환경 변수는 서비스 이름을 접두사로 사용합니다 (예: PAYMENT_SERVER_HTTP_PORT).
func Load(serviceName string) (Config, error) {
	v := viper.New()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	v.SetConfigType("yaml")
	v.SetConfigName(serviceName)

	v.SetEnvPrefix(strings.ToUpper(serviceName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		// 파일 경로가 직접 주어진 경우
		if filepath.Ext(configPath) != "" {
			v.SetConfigFile(configPath)
		} else {
			v.AddConfigPath(configPath)
		}
	}
	v.AddConfigPath(filepath.Join(configDir, env))
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("설정 파일 로드 실패: %w", err)
	}

	return &viperConfig{v: v}, nil
}

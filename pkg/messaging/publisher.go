// Package messaging는 도메인 이벤트 발행을 위한 브로커 클라이언트를 제공합니다.
package messaging

import (
	"context"
	"fmt"
	"time"
)

// Publisher는 토픽 단위로 JSON 메시지를 발행합니다.
type Publisher interface {
	Publish(ctx context.Context, topic string, message interface{}) error
	Close() error
}

// Message 수신 메시지
type Message struct {
	Channel string
	Payload []byte
	Time    time.Time
}

// Config 브로커 설정
type Config struct {
	// Driver redis, rabbitmq, none
	Driver   string `yaml:"driver"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	URL      string `yaml:"url"`
}

// NewPublisher는 설정된 드라이버에 맞는 Publisher를 생성합니다.
func NewPublisher(cfg Config) (Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return NoopPublisher{}, nil
	case "redis":
		return NewRedisClient(cfg.Addr, cfg.Password, cfg.DB)
	case "rabbitmq":
		p, err := NewRabbitPublisher(cfg.URL)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("지원하지 않는 메시징 드라이버: %s", cfg.Driver)
	}
}

// NoopPublisher는 메시지를 버립니다.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }

func (NoopPublisher) Close() error { return nil }

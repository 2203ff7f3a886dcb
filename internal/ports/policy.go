package ports

import "time"

type Policy struct {
	MaxSubscribers    int           `yaml:"max_subscribers"`
	SubscriberBuffer  int           `yaml:"subscriber_buffer"`
	KeepAliveInterval time.Duration `yaml:"keepalive_interval"`
	MaxInitials       int           `yaml:"max_initials"`
}

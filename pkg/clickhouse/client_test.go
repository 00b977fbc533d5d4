package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(Config{
		Host:         "ch",
		Port:         9000,
		Database:     "trendpull",
		User:         "u",
		Password:     "p",
		DialTimeout:  5 * time.Second,
		MaxExecTime:  time.Minute,
		AsyncInsert:  true,
		WaitForAsync: true,
	})
	assert.Equal(t, "clickhouse://u:p@ch:9000/trendpull?dial_timeout=5s&max_execution_time=60&async_insert=1&wait_for_async_insert=1", dsn)
}

func TestBuildDSNWithoutParams(t *testing.T) {
	assert.Equal(t, "http://default:@ch:8123/db", buildDSN(Config{Host: "ch", Port: 8123, Database: "db", User: "default", UseHTTP: true}))
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(nil, WithPort(9000))
	assert.Error(t, err)
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/service-mesh/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

func validConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Address:     ":8080",
			Environment: config.EnvDev,
		},
		Registry: config.RegistryConfig{
			HeartbeatTimeout: "30s",
			SweepInterval:    "5s",
			Strategy:         "round-robin",
		},
		Breaker: config.BreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  "60s",
			HalfOpenTimeout:  "30s",
			MinThroughput:    10,
		},
		Dispatcher: config.DispatcherConfig{
			MaxRetries:     3,
			RetryDelay:     "1s",
			RequestTimeout: "10s",
		},
		Services: []config.ServiceConfig{
			{Name: "brain", URL: "http://localhost:8081"},
		},
		Logging: config.LoggingConfig{
			Level: config.LogLevelInfo,
		},
	}
}

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("with valid config file", func() {
			BeforeEach(func() {
				configContent := `
server:
  address: ":8000"
  environment: "dev"

registry:
  heartbeat_timeout: "20s"
  sweep_interval: "2s"
  strategy: "round-robin"

breaker:
  failure_threshold: 3
  recovery_timeout: "30s"
  half_open_timeout: "15s"
  min_throughput: 5

dispatcher:
  max_retries: 2
  retry_delay: "500ms"
  request_timeout: "5s"

services:
  - name: "brain"
    url: "http://localhost:8081"
  - name: "emotion"
    url: "http://localhost:8082"

logging:
  level: "info"
`
				configPath := filepath.Join(tempDir, "config.yaml")
				err := os.WriteFile(configPath, []byte(configContent), 0644)
				Expect(err).NotTo(HaveOccurred())

				err = os.Chdir(tempDir)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())
			})

			It("should parse the registry section", func() {
				cfg, _ := config.Load()
				Expect(cfg.Registry.HeartbeatTimeout).To(Equal("20s"))
				Expect(cfg.Registry.SweepInterval).To(Equal("2s"))
				Expect(cfg.Registry.Strategy).To(Equal("round-robin"))
			})

			It("should parse the breaker section", func() {
				cfg, _ := config.Load()
				Expect(cfg.Breaker.FailureThreshold).To(Equal(3))
				Expect(cfg.Breaker.MinThroughput).To(Equal(5))
			})

			It("should parse the configured services", func() {
				cfg, _ := config.Load()
				Expect(cfg.Services).To(HaveLen(2))
				Expect(cfg.Services[0].Name).To(Equal("brain"))
				Expect(cfg.Services[1].URL).To(Equal("http://localhost:8082"))
			})
		})

		Context("without a config file", func() {
			BeforeEach(func() {
				err := os.Chdir(tempDir)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should fall back to defaults", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Registry.Strategy).To(Equal("round-robin"))
				Expect(cfg.Registry.HeartbeatTimeout).To(Equal("30s"))
				Expect(cfg.Breaker.FailureThreshold).To(Equal(5))
				Expect(cfg.Dispatcher.MaxRetries).To(Equal(3))
			})
		})
	})

	Describe("Validate", func() {
		It("accepts a complete configuration", func() {
			Expect(validConfig().Validate()).To(Succeed())
		})

		It("rejects an unknown environment", func() {
			cfg := validConfig()
			cfg.Server.Environment = "production"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("rejects an address without a port", func() {
			cfg := validConfig()
			cfg.Server.Address = "localhost"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("rejects an unknown strategy", func() {
			cfg := validConfig()
			cfg.Registry.Strategy = "least-connections"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("rejects a malformed duration", func() {
			cfg := validConfig()
			cfg.Registry.HeartbeatTimeout = "thirty seconds"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("rejects a non-positive failure threshold", func() {
			cfg := validConfig()
			cfg.Breaker.FailureThreshold = 0
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("rejects a service without a name", func() {
			cfg := validConfig()
			cfg.Services[0].Name = ""
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("rejects a service url without http scheme", func() {
			cfg := validConfig()
			cfg.Services[0].URL = "ftp://localhost:8081"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("rejects an unknown log level", func() {
			cfg := validConfig()
			cfg.Logging.Level = "verbose"
			Expect(cfg.Validate()).NotTo(Succeed())
		})
	})
})

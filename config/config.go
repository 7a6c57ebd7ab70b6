package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Orders  OrdersConfig
	Storage StorageConfig
	Kafka   KafkaConfig
	Payment PaymentConfig
	Observ  ObservabilityConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type OrdersConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

type StorageConfig struct {
	// Backend selects where the cart mirror lives: "file" or "redis".
	Backend       string
	DataDir       string
	Profile       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	TopicOrder string
}

type PaymentConfig struct {
	UPIID        string
	MerchantName string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ordersTimeout, _ := strconv.Atoi(getEnv("ORDERS_TIMEOUT_SECONDS", "30"))
	kafkaEnabled, _ := strconv.ParseBool(getEnv("KAFKA_ENABLED", "false"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Orders: OrdersConfig{
			BaseURL:        getEnv("ORDERS_API_URL", "http://localhost:9000"),
			TimeoutSeconds: ordersTimeout,
		},
		Storage: StorageConfig{
			Backend:       getEnv("STORAGE_BACKEND", "file"),
			DataDir:       getEnv("DATA_DIR", "data"),
			Profile:       getEnv("STORAGE_PROFILE", "default"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		Kafka: KafkaConfig{
			Enabled:    kafkaEnabled,
			Brokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicOrder: getEnv("KAFKA_TOPIC_ORDER_EVENTS", "storefront-order-events"),
		},
		Payment: PaymentConfig{
			UPIID:        getEnv("UPI_ID", "your-vpa@bank"),
			MerchantName: getEnv("MERCHANT_NAME", "Divaksha"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, storage=%s", cfg.Server.Env, cfg.Server.Port, cfg.Storage.Backend)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

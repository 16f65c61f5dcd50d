package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	Port       string
	Env        string

	Gateways GatewayConfig
}

// GatewayConfig carries every credential and endpoint the payment gateways
// need. It is loaded once at boot and passed into the reconciliation engine
// and verifiers, never read from the environment per request.
type GatewayConfig struct {
	EsewaMerchantID string
	EsewaSecretKey  string
	EsewaPaymentURL string
	EsewaVerifyURL  string
	KhaltiPublicKey string
	KhaltiSecretKey string
	KhaltiVerifyURL string
	FonepayMerchant string
	FonepayChecksum string
	FonepayPayURL   string
	BankAccountName string
	BankAccount     string
	BankName        string
	FrontendSuccess string
	FrontendFailure string
	CallbackBaseURL string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		return nil, fmt.Errorf("error loading .env file: %v", err)
	}

	config := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		Port:       os.Getenv("PORT"),
		Env:        os.Getenv("ENV"),
		Gateways: GatewayConfig{
			EsewaMerchantID: os.Getenv("ESEWA_MERCHANT_ID"),
			EsewaSecretKey:  os.Getenv("ESEWA_SECRET_KEY"),
			EsewaPaymentURL: getEnvOrDefault("ESEWA_PAYMENT_URL", "https://rc-epay.esewa.com.np/api/epay/main/v2/form"),
			EsewaVerifyURL:  getEnvOrDefault("ESEWA_VERIFY_URL", "https://uat.esewa.com.np/epay/transrec"),
			KhaltiPublicKey: os.Getenv("KHALTI_PUBLIC_KEY"),
			KhaltiSecretKey: os.Getenv("KHALTI_SECRET_KEY"),
			KhaltiVerifyURL: getEnvOrDefault("KHALTI_VERIFY_URL", "https://khalti.com/api/v2/payment/verify/"),
			FonepayMerchant: os.Getenv("FONEPAY_MERCHANT_CODE"),
			FonepayChecksum: os.Getenv("FONEPAY_CHECKSUM_KEY"),
			FonepayPayURL:   getEnvOrDefault("FONEPAY_PAYMENT_URL", "https://dev-clientapi.fonepay.com/api/merchantRequest"),
			BankAccountName: os.Getenv("BANK_ACCOUNT_NAME"),
			BankAccount:     os.Getenv("BANK_ACCOUNT_NUMBER"),
			BankName:        os.Getenv("BANK_NAME"),
			FrontendSuccess: getEnvOrDefault("FRONTEND_SUCCESS_URL", "http://localhost:3000/payment/success"),
			FrontendFailure: getEnvOrDefault("FRONTEND_FAILURE_URL", "http://localhost:3000/payment/failure"),
			CallbackBaseURL: getEnvOrDefault("CALLBACK_BASE_URL", "http://localhost:8080"),
		},
	}

	if err := config.Gateways.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate fails fast on missing signing material. A blank secret would only
// surface as silently rejected signatures at the gateway, so it aborts boot
// instead.
func (g GatewayConfig) Validate() error {
	if g.EsewaSecretKey == "" {
		return fmt.Errorf("ESEWA_SECRET_KEY is not configured")
	}
	if g.KhaltiSecretKey == "" {
		return fmt.Errorf("KHALTI_SECRET_KEY is not configured")
	}
	if g.FonepayChecksum == "" {
		return fmt.Errorf("FONEPAY_CHECKSUM_KEY is not configured")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

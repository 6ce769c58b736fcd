package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// Config 结构体用于存储应用程序的配置信息
type Config struct {
	HTTPAddr    string
	LogLevel    string
	Debug       bool // 是否开启调试模式
	FrontendURL string
	BackendURL  string
	JWTSecret   string
	TokenTTL    time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	// 文档存储: firestore | mysql | memory
	DocStore           string
	FirestoreProjectID string
	GCPCredentialsFile string
	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string

	// 对象存储: local | gcs | s3
	BlobStore        string
	LocalStoragePath string
	GCSBucketName    string
	S3Region         string
	S3Bucket         string

	// 图片目录 API
	UnsplashAccessKey  string
	UnsplashBaseURL    string
	CatalogRatePerSec  int
	CatalogCacheTTL    time.Duration
	HydrationParallels int

	RedisAddr     string
	RedisPassword string
	NATSURL       string
}

// AppConfig 是全局配置变量
var AppConfig Config

// Init 函数用于初始化配置
func Init() {
	// 加载 .env 文件
	err := godotenv.Load()
	if err != nil {
		log.Printf("警告：无法加载 .env 文件: %v", err)
	}

	AppConfig = Load()

	validateConfig()

	if AppConfig.Debug {
		gin.SetMode(gin.DebugMode)
		log.Println("应用程序运行在调试模式")
	} else {
		gin.SetMode(gin.ReleaseMode)
		log.Println("应用程序运行在生产模式")
	}

	log.Printf("配置加载完成。文档存储：%s，对象存储：%s", AppConfig.DocStore, AppConfig.BlobStore)
}

// Load 从环境变量中读取配置，不做校验
func Load() Config {
	return Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Debug:       getEnvAsBool("DEBUG", false),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		BackendURL:  getEnv("BACKEND_URL", "http://localhost:8080"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		TokenTTL:    getEnvAsDuration("TOKEN_TTL", 24*time.Hour),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 465),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		DocStore:           getEnv("DOC_STORE", "memory"),
		FirestoreProjectID: getEnv("FIRESTORE_PROJECT_ID", ""),
		GCPCredentialsFile: getEnv("GCP_CREDENTIALS_FILE", ""),
		DBHost:             getEnv("DB_HOST", ""),
		DBPort:             getEnv("DB_PORT", "3306"),
		DBUser:             getEnv("DB_USER", ""),
		DBPassword:         getEnv("DB_PASSWORD", ""),
		DBName:             getEnv("DB_NAME", ""),

		BlobStore:        getEnv("BLOB_STORE", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./uploads"),
		GCSBucketName:    getEnv("GCS_BUCKET_NAME", ""),
		S3Region:         getEnv("S3_REGION", "us-west-2"),
		S3Bucket:         getEnv("S3_BUCKET", ""),

		UnsplashAccessKey:  getEnv("UNSPLASH_ACCESS_KEY", ""),
		UnsplashBaseURL:    getEnv("UNSPLASH_BASE_URL", "https://api.unsplash.com"),
		CatalogRatePerSec:  getEnvAsInt("CATALOG_RATE_PER_SEC", 10),
		CatalogCacheTTL:    getEnvAsDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		HydrationParallels: getEnvAsInt("HYDRATION_PARALLELS", 8),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		NATSURL:       getEnv("NATS_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(key, "")
	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}
	return defaultVal
}

func validateConfig() {
	if AppConfig.JWTSecret == "" {
		log.Fatal("错误：JWT密钥未设置")
	}
	if AppConfig.UnsplashAccessKey == "" {
		log.Fatal("错误：UNSPLASH_ACCESS_KEY 未设置")
	}

	switch AppConfig.DocStore {
	case "firestore":
		if AppConfig.FirestoreProjectID == "" {
			log.Fatal("错误：Firestore 项目ID未设置")
		}
	case "mysql":
		if AppConfig.DBHost == "" || AppConfig.DBUser == "" || AppConfig.DBPassword == "" || AppConfig.DBName == "" {
			log.Fatal("错误：数据库配置不完整")
		}
	case "memory":
		log.Println("警告：使用内存文档存储，重启后数据将丢失")
	default:
		log.Fatalf("错误：未知的文档存储类型 %q", AppConfig.DocStore)
	}

	switch AppConfig.BlobStore {
	case "local":
	case "gcs":
		if AppConfig.GCSBucketName == "" {
			log.Fatal("错误：GCS 存储桶未设置")
		}
	case "s3":
		if AppConfig.S3Bucket == "" {
			log.Fatal("错误：S3 存储桶未设置")
		}
	default:
		log.Fatalf("错误：未知的对象存储类型 %q", AppConfig.BlobStore)
	}
}

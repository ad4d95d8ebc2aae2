package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr string

	// Remote question-answering backend (the /ask and /upload service).
	BackendBaseURL string
	BackendTimeout time.Duration

	// Saved-session persistence slot.
	PersistDriver string // "sqlite" or "redis"
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Async ask jobs. Empty RabbitURL disables the async path.
	RabbitURL   string
	RabbitQueue string
	WorkerCount int

	// Typewriter reveal used by the streaming endpoint.
	TypingInterval time.Duration

	LogPath string
	Dev     bool
}

func Load() Config {
	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	backendURL := os.Getenv("BACKEND_BASE_URL")
	if backendURL == "" {
		backendURL = "https://legal-bot-backend.onrender.com"
	}

	backendTimeout := 90 * time.Second
	if v := os.Getenv("BACKEND_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			backendTimeout = time.Duration(n) * time.Second
		}
	}

	driver := os.Getenv("PERSIST_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "legalchat.db"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	rabbitQueue := os.Getenv("RABBIT_QUEUE")
	if rabbitQueue == "" {
		rabbitQueue = "ask_jobs"
	}

	workerCount := 2
	if v := os.Getenv("WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			workerCount = n
		}
	}

	typingInterval := 25 * time.Millisecond
	if v := os.Getenv("TYPING_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			typingInterval = time.Duration(n) * time.Millisecond
		}
	}

	logPath := os.Getenv("LOG_PATH")
	if logPath == "" {
		logPath = "logs/legalchat.log"
	}

	return Config{
		ListenAddr: listenAddr,

		BackendBaseURL: backendURL,
		BackendTimeout: backendTimeout,

		PersistDriver: driver,
		SQLitePath:    sqlitePath,
		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: rabbitQueue,
		WorkerCount: workerCount,

		TypingInterval: typingInterval,

		LogPath: logPath,
		Dev:     os.Getenv("APP_ENV") != "production",
	}
}

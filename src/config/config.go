package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvPathEnvVar       = "UPSCREEN_ENV"
	SecretKeyPathEnvVar = "S3_SECRET_KEY_FILE"
	TransportS3         = "s3"
	TransportLocal      = "local"
	appFolderName       = "upScreen"
)

type LoadOptions struct {
	// EnvPathOverride points at a .env file to use instead of the default lookup.
	EnvPathOverride string
	FromFileMenu    bool
	ArgFiles        []string
}

type S3 struct {
	Endpoint       string
	Bucket         string
	Region         string
	AccessKey      string
	SecretKey      string
	DisableTLS     bool
	ForcePathStyle bool
}

type Config struct {
	RemoteFolder     string
	RemoteHTTPPath   string
	FileNameLength   int
	ImageFormat      string
	JPEGQuality      int
	CopyLink         bool
	OpenInBrowser    bool
	FromFileMenu     bool
	ArgFiles         []string
	LocalFolder      string
	Transport        string
	LocalTargetDir   string
	S3               S3
	FetchTimeoutSec  int
	UploadTimeoutSec int

	EnableFileLogging bool
	MetricsAddr       string
	EnvPath           string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) explicit override
	// 2) .env in the application (executable) directory
	// 3) If not found, use UPSCREEN_ENV env var as a path to a config file
	envPath := resolveEnvPath(opts.EnvPathOverride)
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", envPath, err)
		}
	}

	localFolder := strings.TrimSpace(os.Getenv("LOCAL_FOLDER"))
	if localFolder == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		localFolder = filepath.Join(dir, appFolderName)
	}

	cfg := &Config{
		RemoteFolder:     os.Getenv("REMOTE_FOLDER"),
		RemoteHTTPPath:   strings.TrimSpace(os.Getenv("REMOTE_HTTP_PATH")),
		FileNameLength:   getEnvInt("FILE_NAME_LENGTH", 6, 0),
		ImageFormat:      resolveImageFormat(os.Getenv("IMAGE_FORMAT")),
		JPEGQuality:      getEnvInt("JPEG_QUALITY", 90, 1),
		CopyLink:         getEnvBool("COPY_LINK", true),
		OpenInBrowser:    getEnvBool("OPEN_IN_BROWSER", true),
		FromFileMenu:     opts.FromFileMenu,
		ArgFiles:         append([]string(nil), opts.ArgFiles...),
		LocalFolder:      localFolder,
		Transport:        strings.ToLower(getEnvWithDefault("TRANSPORT", TransportS3)),
		LocalTargetDir:   os.Getenv("LOCAL_TARGET_DIR"),
		FetchTimeoutSec:  getEnvInt("FETCH_TIMEOUT_SEC", 15, 1),
		UploadTimeoutSec: getEnvInt("UPLOAD_TIMEOUT_SEC", 120, 1),
		S3: S3{
			Endpoint:       strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			Bucket:         os.Getenv("S3_BUCKET"),
			Region:         getEnvWithDefault("S3_REGION", "us-east-1"),
			AccessKey:      os.Getenv("S3_ACCESS_KEY"),
			SecretKey:      resolveSecretKey(),
			DisableTLS:     getEnvBool("S3_DISABLE_TLS", false),
			ForcePathStyle: getEnvBool("S3_FORCE_PATH_STYLE", true),
		},
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		MetricsAddr:       os.Getenv("METRICS_ADDR"),
		EnvPath:           envPath,
	}

	return cfg, nil
}

// Validate reports settings that make uploads impossible.
func (c *Config) Validate() error {
	var errs []error
	if c.RemoteHTTPPath == "" {
		errs = append(errs, errors.New("REMOTE_HTTP_PATH is required"))
	}
	switch c.Transport {
	case TransportS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required"))
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			errs = append(errs, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required"))
		}
	case TransportLocal:
		if strings.TrimSpace(c.LocalTargetDir) == "" {
			errs = append(errs, errors.New("LOCAL_TARGET_DIR is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TRANSPORT %q", c.Transport))
	}
	return errors.Join(errs...)
}

func resolveEnvPath(override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}

	execPath, err := os.Executable()
	if err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveSecretKey() string {
	if keyPath := strings.TrimSpace(os.Getenv(SecretKeyPathEnvVar)); keyPath != "" {
		if data, err := os.ReadFile(keyPath); err == nil {
			if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
				return fileKey
			}
		}
	}
	return os.Getenv("S3_SECRET_KEY")
}

func resolveImageFormat(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "jpeg", "jpg":
		return "jpeg"
	case "gif":
		return "gif"
	default:
		return "png"
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue, min int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= min {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

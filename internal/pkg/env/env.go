package env

import (
	"os"

	"github.com/joho/godotenv"
)

// Env holds the parsed .env file. OS environment variables win over it so
// container deployments can override single keys without editing the file.
var Env map[string]string

func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val, ok := Env[key]; ok {
		return val
	}
	return def
}

// SetupEnvFile loads the nearest .env, walking up from the binary's working
// directory so both `go run ./cmd/...` and repo-root invocations find it.
func SetupEnvFile() {
	candidates := []string{".env", "../../.env", "../../../.env"}

	var err error
	for _, path := range candidates {
		Env, err = godotenv.Read(path)
		if err == nil {
			return
		}
	}
	panic("no .env file found in any of the expected locations")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}

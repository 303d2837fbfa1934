package backend

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFileName = "launcher.yaml"

// Config is the on-disk launcher configuration.
type Config struct {
	Game struct {
		Path string `yaml:"path"`
		Lang string `yaml:"lang"`
	} `yaml:"game"`
	Server struct {
		HashFileURL string `yaml:"hash_file_url"`
		FilesURL    string `yaml:"files_url"`
		LoginURL    string `yaml:"login_url"`
	} `yaml:"server"`
}

// findConfigFile looks for launcher.yaml in the working directory, its
// parent, and next to the executable, in that order.
func findConfigFile() (string, error) {
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, configFileName))
		candidates = append(candidates, filepath.Join(filepath.Dir(cwd), configFileName))
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), configFileName))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrConfigNotFound
}

// LoadConfig reads the launcher config from an explicit path, or from the
// default search locations when path is empty.
func LoadConfig(path string) (*Config, string, error) {
	if path == "" {
		found, err := findConfigFile()
		if err != nil {
			return nil, "", err
		}
		path = found
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, "", err
	}
	return &cfg, path, nil
}

// saveConfig writes the config back to the path it was loaded from.
func saveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

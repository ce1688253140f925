package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	AppName = "axiom-farm"

	CfgFileName = "config.toml"

	LogsDirName = "logs"

	rootPathEnvVar = "AXIOM_FARM_PATH"

	defaultRepoRoot = "~/.axiom-farm"

	envPrefix = "AXIOM_FARM"
)

type Repo struct {
	RepoRoot string
	Config   *Config
}

// Default returns a repo with the built-in config, without touching disk.
func Default(repoRoot string) *Repo {
	return &Repo{
		RepoRoot: repoRoot,
		Config:   defaultConfig(),
	}
}

// Load reads the config file under repoRoot, applying AXIOM_FARM_* environment
// overrides on top.
func Load(repoRoot string) (*Repo, error) {
	repoRoot, err := LoadRepoRootFromEnv(repoRoot)
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	cfgPath := filepath.Join(repoRoot, CfgFileName)
	if fileExist(cfgPath) {
		if err := readConfigFromFile(cfgPath, cfg); err != nil {
			return nil, err
		}
	}
	return &Repo{
		RepoRoot: repoRoot,
		Config:   cfg,
	}, nil
}

// Flush writes the current config back to the repo root.
func (r *Repo) Flush() error {
	if err := os.MkdirAll(r.RepoRoot, 0755); err != nil {
		return errors.Wrap(err, "create repo root")
	}
	raw, err := toml.Marshal(r.Config)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(filepath.Join(r.RepoRoot, CfgFileName), raw, 0644); err != nil {
		return errors.Wrap(err, "write config file")
	}
	return nil
}

func LoadRepoRootFromEnv(repoRoot string) (string, error) {
	if repoRoot != "" {
		return repoRoot, nil
	}
	repoRoot = os.Getenv(rootPathEnvVar)
	var err error
	if len(repoRoot) == 0 {
		repoRoot, err = homedir.Expand(defaultRepoRoot)
	}
	return repoRoot, err
}

func readConfigFromFile(cfgFilePath string, config any) error {
	vp := viper.New()
	vp.SetConfigFile(cfgFilePath)
	vp.SetConfigType("toml")

	// only check types, viper does not have a strong type checking
	raw, err := os.ReadFile(cfgFilePath)
	if err != nil {
		return err
	}
	decoder := toml.NewDecoder(bytes.NewBuffer(raw))
	checker := reflect.New(reflect.TypeOf(config).Elem())
	if err := decoder.Decode(checker.Interface()); err != nil {
		var decodeError *toml.DecodeError
		if errors.As(err, &decodeError) {
			return errors.Errorf("check config formater failed from %s:\n%s", cfgFilePath, decodeError.String())
		}

		return errors.Wrapf(err, "check config formater failed from %s", cfgFilePath)
	}

	return readConfig(vp, config)
}

func readConfig(vp *viper.Viper, config any) error {
	vp.AutomaticEnv()
	vp.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	vp.SetEnvKeyReplacer(replacer)

	if err := vp.ReadInConfig(); err != nil {
		return err
	}

	if err := vp.Unmarshal(config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		StringToTimeDurationHookFunc(),
		func(
			f reflect.Kind,
			t reflect.Kind,
			data any) (any, error) {
			if f != reflect.String || t != reflect.Slice {
				return data, nil
			}

			raw := data.(string)
			if raw == "" {
				return []string{}, nil
			}
			raw = strings.TrimPrefix(raw, ";")
			raw = strings.TrimSuffix(raw, ";")

			return strings.Split(raw, ";"), nil
		},
	))); err != nil {
		return err
	}

	return nil
}

func fileExist(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func CheckWritable(dir string) error {
	_, err := os.Stat(dir)
	if err == nil {
		// dir exists, make sure we can write to it
		testfile := filepath.Join(dir, "test")
		fi, err := os.Create(testfile)
		if err != nil {
			if os.IsPermission(err) {
				return fmt.Errorf("%s is not writeable by the current user", dir)
			}
			return fmt.Errorf("unexpected error while checking writeablility of repo root: %s", err)
		}
		_ = fi.Close()
		return os.Remove(testfile)
	}

	if os.IsNotExist(err) {
		// dir doesn't exist, check that we can create it
		return os.Mkdir(dir, 0775)
	}

	if os.IsPermission(err) {
		return fmt.Errorf("cannot write to %s, incorrect permissions", err)
	}

	return err
}

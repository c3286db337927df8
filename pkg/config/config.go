// Package config loads and saves the server configuration file.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/user"
	"path"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".gdbstub"
	configFile string = "config.yml"
)

// Config defines all configuration options available to be set through
// the config file. Command-line flags override these.
type Config struct {
	// Listen is the default listen address for TCP mode.
	Listen string `yaml:"listen"`
	// Mode selects the transport: "tcp", "unix" or "pty".
	Mode string `yaml:"mode"`
	// PacketSize overrides the advertised maximum packet size.
	PacketSize int `yaml:"packet-size,omitempty"`
	// DisableRLE turns off run-length compression of responses, for
	// clients that mishandle it.
	DisableRLE bool `yaml:"disable-rle"`
	// HostFS is the sandbox directory served over host I/O; empty
	// disables the vFile family.
	HostFS string `yaml:"host-fs"`
	// Log enables logging, LogOutput selects the components
	// (comma-separated: gdbwire, stub, emu) and LogDest redirects
	// logging to a file.
	Log       bool   `yaml:"log"`
	LogOutput string `yaml:"log-output"`
	LogDest   string `yaml:"log-dest"`
}

// LoadConfig attempts to populate a Config object from the config.yml file.
func LoadConfig() *Config {
	err := createConfigPath()
	if err != nil {
		fmt.Printf("Could not create config directory: %v.", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Printf("Unable to get config file path: %v.", err)
		return &Config{}
	}

	f, err := os.Open(fullConfigFile)
	if err != nil {
		f, err = createDefaultConfig(fullConfigFile)
		if err != nil {
			fmt.Printf("Error creating default config file: %v", err)
			return &Config{}
		}
	}
	defer func() {
		err := f.Close()
		if err != nil {
			fmt.Printf("Closing config file failed: %v.", err)
		}
	}()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		fmt.Printf("Unable to read config data: %v.", err)
		return &Config{}
	}

	var c Config
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		fmt.Printf("Unable to decode config file: %v.", err)
		return &Config{}
	}

	return &c
}

// SaveConfig will marshal and save the config struct to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(fullConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %v", err)
	}
	err = writeDefaultConfig(f)
	if err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %v", err)
	}
	return f, nil
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for the gdbstub server.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Address to listen on in tcp mode.
# listen: "localhost:3333"

# Transport to serve the session over: tcp, unix or pty.
# mode: tcp

# Maximum RSP packet size advertised to the client.
# packet-size: 4096

# Disable run-length compression of responses.
# disable-rle: false

# Directory served to the client over vFile host I/O. Leave empty to
# disable host I/O entirely.
# host-fs: ""

# Enable logging, pick components and redirect to a file.
# log: true
# log-output: "gdbwire,stub"
# log-dest: ""
`)
	return err
}

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	userHomeDir := "."
	usr, err := user.Current()
	if err == nil {
		userHomeDir = usr.HomeDir
	}
	return path.Join(userHomeDir, configDir, file), nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/markand/irccd-sub002/internal/bot"
	"github.com/markand/irccd-sub002/internal/irc"
	"github.com/markand/irccd-sub002/internal/rule"
)

const defaultPingTimeout = 300

// Config holds the whole daemon configuration
type Config struct {
	Logs      Logs           `yaml:"logs"`
	Transport Transport      `yaml:"transport"`
	Servers   []Server       `yaml:"servers"`
	Rules     []Rule         `yaml:"rules"`
	Plugins   []PluginConfig `yaml:"plugins"`
}

type Logs struct {
	Verbose bool `yaml:"verbose"`
	// Path is a log file; stderr when empty.
	Path string `yaml:"path"`
}

// Transport enables the administrative socket when Path or Address is set.
type Transport struct {
	Path     string `yaml:"path"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
}

type Flood struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// Server describes one IRC network. Durations are in seconds.
type Server struct {
	ID             string        `yaml:"id"`
	Hostname       string        `yaml:"hostname"`
	Port           int           `yaml:"port"`
	SSL            bool          `yaml:"ssl"`
	SSLVerify      *bool         `yaml:"ssl_verify"`
	Password       string        `yaml:"password"`
	Nickname       string        `yaml:"nickname"`
	Alternate      string        `yaml:"alternate"`
	Username       string        `yaml:"username"`
	Realname       string        `yaml:"realname"`
	CommandChar    string        `yaml:"command_char"`
	CTCPVersion    string        `yaml:"ctcp_version"`
	AutoRejoin     bool          `yaml:"auto_rejoin"`
	JoinInvite     bool          `yaml:"join_invite"`
	AutoReconnect  *bool         `yaml:"auto_reconnect"`
	ReconnectTries int           `yaml:"reconnect_tries"`
	ReconnectDelay int           `yaml:"reconnect_delay"`
	ConnectTimeout int           `yaml:"connect_timeout"`
	PingTimeout    *int          `yaml:"ping_timeout"` // 0 disables
	Proxy          string        `yaml:"proxy"`
	Encoding       string        `yaml:"encoding"`
	Flood          Flood         `yaml:"flood"`
	QueueSize      int           `yaml:"queue_size"`
	Channels       []irc.Channel `yaml:"channels"`
}

type Rule struct {
	rule.Criteria `yaml:",inline"`
	Action        rule.Action `yaml:"action"`
}

type PluginConfig struct {
	Name    string            `yaml:"name"`
	Options map[string]string `yaml:"options"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a configuration, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Transport.Path != "" && c.Transport.Address != "" {
		return errors.New("transport: path and address are exclusive")
	}

	seen := make(map[string]bool)
	for i := range c.Servers {
		s := &c.Servers[i]
		if s.ID == "" {
			return fmt.Errorf("server #%d: missing id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("server %s: duplicate id", s.ID)
		}
		seen[s.ID] = true

		if s.Hostname == "" {
			return fmt.Errorf("server %s: missing hostname", s.ID)
		}
		if s.Port == 0 {
			s.Port = 6667
			if s.SSL {
				s.Port = 6697
			}
		}
		if s.Port < 0 || s.Port > 65535 {
			return fmt.Errorf("server %s: invalid port %d", s.ID, s.Port)
		}
		if s.Nickname == "" {
			s.Nickname = "irccd"
		}
		if s.ReconnectTries < 0 || s.ReconnectDelay < 0 || s.ConnectTimeout < 0 || (s.PingTimeout != nil && *s.PingTimeout < 0) {
			return fmt.Errorf("server %s: negative tries, delay or timeout", s.ID)
		}
		if s.ReconnectDelay == 0 {
			s.ReconnectDelay = 30
		}
		if s.ConnectTimeout == 0 {
			s.ConnectTimeout = 30
		}
		if s.PingTimeout == nil {
			def := defaultPingTimeout
			s.PingTimeout = &def
		}
	}

	plugins := make(map[string]bool)
	for i, p := range c.Plugins {
		if p.Name == "" {
			return fmt.Errorf("plugin #%d: missing name", i)
		}
		if plugins[p.Name] {
			return fmt.Errorf("plugin %s: duplicate", p.Name)
		}
		plugins[p.Name] = true
	}
	return nil
}

// Options converts the server section for the protocol engine.
func (s Server) Options() irc.Options {
	return irc.Options{
		ID:             s.ID,
		Hostname:       s.Hostname,
		Port:           s.Port,
		Password:       s.Password,
		Nickname:       s.Nickname,
		Alternate:      s.Alternate,
		Username:       s.Username,
		Realname:       s.Realname,
		CommandChar:    s.CommandChar,
		CTCPVersion:    s.CTCPVersion,
		SSL:            s.SSL,
		SSLVerify:      s.SSLVerify == nil || *s.SSLVerify,
		Proxy:          s.Proxy,
		Encoding:       s.Encoding,
		AutoRejoin:     s.AutoRejoin,
		JoinInvite:     s.JoinInvite,
		ConnectTimeout: time.Duration(s.ConnectTimeout) * time.Second,
		PingTimeout:    time.Duration(*s.PingTimeout) * time.Second,
		FloodRate:      s.Flood.Rate,
		FloodBurst:     s.Flood.Burst,
		QueueSize:      s.QueueSize,
		Channels:       s.Channels,
	}
}

// Reconnect returns the reconnection policy, enabled unless disabled.
func (s Server) Reconnect() bot.Reconnect {
	return bot.Reconnect{
		Enabled: s.AutoReconnect == nil || *s.AutoReconnect,
		Tries:   s.ReconnectTries,
		Delay:   time.Duration(s.ReconnectDelay) * time.Second,
	}
}

// Router builds the rule router in configuration order.
func (c *Config) Router() *rule.Router {
	r := rule.NewRouter()
	for _, cr := range c.Rules {
		r.Add(rule.New(cr.Criteria, cr.Action))
	}
	return r
}

// PluginOptions maps plugin names to their options.
func (c *Config) PluginOptions() map[string]map[string]string {
	out := make(map[string]map[string]string, len(c.Plugins))
	for _, p := range c.Plugins {
		out[p.Name] = p.Options
	}
	return out
}

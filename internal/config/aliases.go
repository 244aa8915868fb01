package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// AliasFile is the name of the friend alias file inside the config directory.
const AliasFile = "aliases"

// AliasConfig holds nickname-to-friend mappings declared by the user. Each
// key is a nickname accepted on the command line and the value is either a
// VRChat user id or a display name.
type AliasConfig struct {
	Aliases map[string]string
}

// Resolve returns the target for name, or name itself when no alias matches.
// Lookups are case-insensitive.
func (c *AliasConfig) Resolve(name string) string {
	if c == nil {
		return name
	}
	if target, ok := c.Aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return target
	}
	return name
}

// LoadAliases reads {dir}/aliases, one "nickname=target" per line. A missing
// file yields an empty config. Blank lines, comments and malformed lines are
// skipped.
func LoadAliases(dir string) (*AliasConfig, error) {
	cfg := &AliasConfig{
		Aliases: make(map[string]string),
	}

	f, err := os.Open(filepath.Join(dir, AliasFile))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}
		nick := strings.ToLower(strings.TrimSpace(line[:idx]))
		target := strings.TrimSpace(line[idx+1:])
		if nick == "" || target == "" {
			continue
		}
		cfg.Aliases[nick] = target
	}

	if err := scanner.Err(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

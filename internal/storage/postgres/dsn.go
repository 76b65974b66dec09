package postgres

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	pq "github.com/lib/pq"
)

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

// connString is a connection string in either URL or libpq key=value form.
// Parameters are matched case-insensitively.
type connString struct {
	url   *url.URL
	pairs []dsnPair
}

type dsnPair struct {
	key, value string
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

func parseConnString(s string) (*connString, error) {
	s = strings.TrimSpace(s)
	if isURL(s) {
		u, err := url.Parse(s)
		if err != nil {
			return nil, err
		}
		return &connString{url: u}, nil
	}
	pairs, err := parseDSN(s)
	if err != nil {
		return nil, err
	}
	return &connString{pairs: pairs}, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// parseDSN splits key=value pairs. Values may be single-quoted, and a
// backslash escapes the next character, as in libpq.
func parseDSN(s string) ([]dsnPair, error) {
	var pairs []dsnPair
	i := 0
	for {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			return pairs, nil
		}

		start := i
		for i < len(s) && s[i] != '=' && !isSpace(s[i]) {
			i++
		}
		key := s[start:i]
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if key == "" || i >= len(s) || s[i] != '=' {
			return nil, fmt.Errorf("malformed parameter near %q", s[start:])
		}
		i++
		for i < len(s) && isSpace(s[i]) {
			i++
		}

		var b strings.Builder
		if i < len(s) && s[i] == '\'' {
			i++
			closed := false
			for i < len(s) {
				c := s[i]
				if c == '\\' && i+1 < len(s) {
					b.WriteByte(s[i+1])
					i += 2
					continue
				}
				i++
				if c == '\'' {
					closed = true
					break
				}
				b.WriteByte(c)
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quoted value for %s", key)
			}
		} else {
			for i < len(s) && !isSpace(s[i]) {
				if s[i] == '\\' && i+1 < len(s) {
					i++
				}
				b.WriteByte(s[i])
				i++
			}
		}
		pairs = append(pairs, dsnPair{key: key, value: b.String()})
	}
}

func (c *connString) get(key string) (string, bool) {
	if c.url != nil {
		if strings.EqualFold(key, "password") && c.url.User != nil {
			if pw, ok := c.url.User.Password(); ok {
				return pw, true
			}
		}
		for k, v := range c.url.Query() {
			if strings.EqualFold(k, key) && len(v) > 0 {
				return v[0], true
			}
		}
		return "", false
	}
	for _, p := range c.pairs {
		if strings.EqualFold(p.key, key) {
			return p.value, true
		}
	}
	return "", false
}

func (c *connString) set(key, value string) {
	if c.url != nil {
		q := c.url.Query()
		q.Set(key, value)
		c.url.RawQuery = q.Encode()
		return
	}
	for i, p := range c.pairs {
		if strings.EqualFold(p.key, key) {
			c.pairs[i].value = value
			return
		}
	}
	c.pairs = append(c.pairs, dsnPair{key: key, value: value})
}

func (c *connString) String() string {
	if c.url != nil {
		return c.url.String()
	}
	parts := make([]string, len(c.pairs))
	for i, p := range c.pairs {
		parts[i] = p.key + "=" + quoteDSNValue(p.value)
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n\r'\\") {
		return v
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

// firstSchema returns the first entry of a search_path value.
func firstSchema(searchPath string) string {
	first, _, _ := strings.Cut(searchPath, ",")
	return strings.Trim(strings.TrimSpace(first), `"`)
}

// withSearchPath pins search_path to schema unless the connection string
// already sets one.
func withSearchPath(connStr, schema string) (string, error) {
	c, err := parseConnString(connStr)
	if err != nil {
		return connStr, err
	}
	if _, ok := c.get("search_path"); !ok {
		c.set("search_path", schema)
	}
	return c.String(), nil
}

// ValidateConnString reports whether connStr is a usable PostgreSQL
// connection string with no password in it. Passwords belong in the OS
// keyring, PGPASSWORD or .pgpass.
func ValidateConnString(connStr string) (bool, error) {
	if strings.TrimSpace(connStr) == "" {
		return false, fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}
	if _, err := pq.NewConnector(connStr); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}

	c, err := parseConnString(connStr)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}
	if _, ok := c.get("password"); ok {
		return false, ErrEmbeddedCredentials
	}
	if c.url != nil && c.url.Host == "" && c.url.User == nil && (c.url.Path == "" || c.url.Path == "/") {
		return false, fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
	}
	return true, nil
}

// connectError adds a hint for the common "server has no TLS" failure.
func connectError(err error, c *connString) error {
	if c != nil && strings.Contains(err.Error(), "SSL is not enabled on the server") {
		if _, ok := c.get("sslmode"); !ok {
			return fmt.Errorf("failed to connect to database: %w (hint: add sslmode=disable to the connection string)", err)
		}
	}
	return fmt.Errorf("failed to connect to database: %w", err)
}

// redacted matches the marker net/url uses in URL.Redacted.
const redacted = "xxxxx"

// Target names the server, database and schema a connection string points
// at. It never carries a password.
type Target struct {
	User     string
	Host     string
	Database string
	Schema   string
}

func (t Target) String() string {
	s := t.Host
	if s == "" {
		s = "localhost"
	}
	if t.User != "" {
		s = t.User + "@" + s
	}
	if t.Database != "" {
		s += "/" + t.Database
	}
	return s + " (schema " + t.Schema + ")"
}

// Describe reports the target of connStr. Schema is the first search_path
// entry, or the schema New would pin when none is set.
func Describe(connStr string) (Target, error) {
	c, err := parseConnString(connStr)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}

	var t Target
	if c.url != nil {
		if c.url.User != nil {
			t.User = c.url.User.Username()
		}
		t.Host = c.url.Host
		t.Database = strings.TrimPrefix(c.url.Path, "/")
	}
	if v, ok := c.get("user"); ok {
		t.User = v
	}
	if v, ok := c.get("host"); ok {
		t.Host = v
		if port, ok := c.get("port"); ok {
			t.Host += ":" + port
		}
	}
	if v, ok := c.get("dbname"); ok {
		t.Database = v
	}

	t.Schema = New(connStr).Schema()
	return t, nil
}

// Redact replaces any password in connStr with xxxxx. A string that cannot be
// parsed is hidden entirely.
func Redact(connStr string) string {
	c, err := parseConnString(connStr)
	if err != nil {
		return redacted
	}
	if _, ok := c.get("password"); !ok {
		return connStr
	}
	if c.url != nil {
		q := c.url.Query()
		for k := range q {
			if strings.EqualFold(k, "password") {
				q.Set(k, redacted)
				c.url.RawQuery = q.Encode()
			}
		}
		return c.url.Redacted()
	}
	c.set("password", redacted)
	return c.String()
}

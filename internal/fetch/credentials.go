package fetch

import (
	"fmt"
	"os"
	"strings"

	"github.com/mt4110/segcut/internal/config"
)

// Credentials turns cookie material into yt-dlp arguments. The returned
// cleanup must be called once the invocation has finished.
type Credentials interface {
	Args() (args []string, cleanup func(), err error)
}

type NoAuth struct{}

func (NoAuth) Args() ([]string, func(), error) { return nil, func() {}, nil }

// CookieFile points yt-dlp at an existing Netscape cookie jar.
type CookieFile struct {
	Path string
}

func (c CookieFile) Args() ([]string, func(), error) {
	if _, err := os.Stat(c.Path); err != nil {
		return nil, func() {}, fmt.Errorf("cookie file: %w", err)
	}
	return []string{"--cookies", c.Path}, func() {}, nil
}

// InlineCookies writes the entries to a temporary jar for each invocation.
type InlineCookies struct {
	Entries []config.Cookie
}

func (c InlineCookies) Args() ([]string, func(), error) {
	f, err := os.CreateTemp("", "segcut-cookies-*.txt")
	if err != nil {
		return nil, func() {}, fmt.Errorf("create cookie jar: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := f.WriteString(NetscapeJar(c.Entries)); err != nil {
		f.Close()
		cleanup()
		return nil, func() {}, fmt.Errorf("write cookie jar: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("write cookie jar: %w", err)
	}
	return []string{"--cookies", f.Name()}, cleanup, nil
}

// NetscapeJar renders cookies in the tab-separated format curl and yt-dlp read.
func NetscapeJar(entries []config.Cookie) string {
	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	for _, e := range entries {
		path := e.Path
		if path == "" {
			path = "/"
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Domain,
			boolFlag(strings.HasPrefix(e.Domain, ".")),
			path,
			boolFlag(e.Secure),
			e.Expires,
			e.Name,
			e.Value,
		)
	}
	return b.String()
}

func boolFlag(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// CredentialsFromConfig picks the variant named by cfg.Mode.
func CredentialsFromConfig(cfg config.Cookies) Credentials {
	switch cfg.Mode {
	case config.CookieModeFile:
		return CookieFile{Path: cfg.File}
	case config.CookieModeInline:
		return InlineCookies{Entries: cfg.Entries}
	default:
		return NoAuth{}
	}
}

package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go-outreach-automation/internal/models"

	"github.com/playwright-community/playwright-go"
)

// LoadCookies reads a cookie export (the format browser extensions produce).
func LoadCookies(path string) ([]models.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cookies []models.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("parse cookies %s: %w", path, err)
	}
	return cookies, nil
}

func SaveCookies(path string, cookies []models.Cookie) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func ToPlaywright(c models.Cookie) playwright.OptionalCookie {
	pc := playwright.OptionalCookie{
		Name:   c.Name,
		Value:  c.Value,
		Domain: playwright.String(c.Domain),
		Path:   playwright.String(c.Path),
	}
	if c.Path == "" {
		pc.Path = playwright.String("/")
	}
	if c.Expires > 0 {
		pc.Expires = playwright.Float(c.Expires)
	}
	if c.HTTPOnly {
		pc.HttpOnly = playwright.Bool(true)
	}
	if c.Secure {
		pc.Secure = playwright.Bool(true)
	}
	switch c.SameSite {
	case "Lax", "lax":
		pc.SameSite = playwright.SameSiteAttributeLax
	case "Strict", "strict":
		pc.SameSite = playwright.SameSiteAttributeStrict
	case "None", "none", "no_restriction":
		pc.SameSite = playwright.SameSiteAttributeNone
	}
	return pc
}

func FromPlaywright(c playwright.Cookie) models.Cookie {
	out := models.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.Expires,
		HTTPOnly: c.HttpOnly,
		Secure:   c.Secure,
	}
	if c.SameSite != nil {
		out.SameSite = string(*c.SameSite)
	}
	return out
}

package config

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// Assets are the files a statement is built from, read once at startup.
type Assets struct {
	Template string
	Logo     []byte
}

// LoadAssets reads the configured template and logo from fs. fallback is
// used when no template path is configured.
func LoadAssets(fs afero.Fs, cfg AssetsConfig, fallback string) (Assets, error) {
	assets := Assets{Template: fallback}

	if cfg.Template != "" {
		text, err := afero.ReadFile(fs, cfg.Template)
		if err != nil {
			return Assets{}, &domain.ConfigurationError{
				Field:  "assets.template",
				Reason: fmt.Sprintf("reading %s: %v", cfg.Template, err),
			}
		}
		assets.Template = string(text)
	}
	if assets.Template == "" {
		return Assets{}, &domain.ConfigurationError{Field: "assets.template", Reason: "template is empty"}
	}

	if cfg.Logo != "" {
		logo, err := afero.ReadFile(fs, cfg.Logo)
		if err != nil {
			return Assets{}, &domain.ConfigurationError{
				Field:  "assets.logo",
				Reason: fmt.Sprintf("reading %s: %v", cfg.Logo, err),
			}
		}
		assets.Logo = logo
	}

	return assets, nil
}

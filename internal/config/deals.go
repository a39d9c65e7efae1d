package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"text/template"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CopyTemplate is a headline/body pair rendered with text/template.
// Templates see .Percent (int), .Tier and .NextTier (strings, NextTier may be empty).
type CopyTemplate struct {
	Headline string `mapstructure:"headline"`
	Body     string `mapstructure:"body"`
}

// DealCopy is the promotional copy shown next to a member's tier.
type DealCopy struct {
	Discount CopyTemplate `mapstructure:"discount"`
	Upsell   CopyTemplate `mapstructure:"upsell"`
}

// DealTemplates holds the compiled form of a DealCopy.
type DealTemplates struct {
	DiscountHeadline *template.Template
	DiscountBody     *template.Template
	UpsellHeadline   *template.Template
	UpsellBody       *template.Template
}

func DefaultDealCopy() DealCopy {
	return DealCopy{
		Discount: CopyTemplate{
			Headline: "{{.Percent}}% off for {{.Tier}} members",
			Body:     "As a {{.Tier}} member you get {{.Percent}}% off your next property purchase.",
		},
		Upsell: CopyTemplate{
			Headline: "Unlock exclusive member discounts",
			Body:     "{{if .NextTier}}Reach {{.NextTier}} tier to start saving on your next property purchase.{{else}}Keep investing with us to unlock member discounts.{{end}}",
		},
	}
}

type DealCopyHolder struct {
	current atomic.Value // holds DealTemplates
}

// NewDealCopyHolder loads deals.yml from the standard locations.
func NewDealCopyHolder(cfg Config, log *zap.Logger) (*DealCopyHolder, error) {
	return NewDealCopyHolderFromPaths(cfg.DealsHotReload, log,
		"/var/lib/estateloyalty/config",
		"/etc/estateloyalty",
		".",
	)
}

// NewDealCopyHolderFromPaths loads deals.yml from the first path that has one,
// falling back to DefaultDealCopy when none does.
func NewDealCopyHolderFromPaths(watch bool, log *zap.Logger, paths ...string) (*DealCopyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("deals.config")
	v := viper.New()

	v.SetConfigName("deals")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("ESTATELOYALTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDealCopy()
	v.SetDefault("deals.discount.headline", defaults.Discount.Headline)
	v.SetDefault("deals.discount.body", defaults.Discount.Body)
	v.SetDefault("deals.upsell.headline", defaults.Upsell.Headline)
	v.SetDefault("deals.upsell.body", defaults.Upsell.Body)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := readDealCopy(v)
	if err != nil {
		return nil, err
	}
	compiled, err := CompileDealCopy(cfg)
	if err != nil {
		return nil, err
	}

	holder := &DealCopyHolder{}
	holder.current.Store(compiled)

	if fileLoaded {
		log.Info("deal copy loaded", zap.String("file", v.ConfigFileUsed()))
	}

	if watch && fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := readDealCopy(v)
			if err != nil {
				log.Warn("reload failed", zap.Error(err))
				return
			}
			compiled, err := CompileDealCopy(updated)
			if err != nil {
				log.Warn("invalid deal copy ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(compiled)
			log.Info("deal copy reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

// readDealCopy unmarshals the deals section. Viper drops defaults for keys
// under a section the file only partly sets, so missing templates are
// filled from DefaultDealCopy.
func readDealCopy(v *viper.Viper) (DealCopy, error) {
	var cfg DealCopy
	if err := v.UnmarshalKey("deals", &cfg); err != nil {
		return DealCopy{}, err
	}
	return cfg.withDefaults(), nil
}

func (d DealCopy) withDefaults() DealCopy {
	defaults := DefaultDealCopy()
	d.Discount = d.Discount.orElse(defaults.Discount)
	d.Upsell = d.Upsell.orElse(defaults.Upsell)
	return d
}

func (c CopyTemplate) orElse(def CopyTemplate) CopyTemplate {
	if strings.TrimSpace(c.Headline) == "" {
		c.Headline = def.Headline
	}
	if strings.TrimSpace(c.Body) == "" {
		c.Body = def.Body
	}
	return c
}

// NewStaticDealCopyHolder wraps already compiled templates.
func NewStaticDealCopyHolder(t DealTemplates) *DealCopyHolder {
	holder := &DealCopyHolder{}
	holder.current.Store(t)
	return holder
}

func (h *DealCopyHolder) Get() DealTemplates {
	return h.current.Load().(DealTemplates)
}

// CompileDealCopy parses and validates every template in cfg.
func CompileDealCopy(cfg DealCopy) (DealTemplates, error) {
	var out DealTemplates
	var err error

	if out.DiscountHeadline, err = parseCopy("discount.headline", cfg.Discount.Headline); err != nil {
		return DealTemplates{}, err
	}
	if out.DiscountBody, err = parseCopy("discount.body", cfg.Discount.Body); err != nil {
		return DealTemplates{}, err
	}
	if out.UpsellHeadline, err = parseCopy("upsell.headline", cfg.Upsell.Headline); err != nil {
		return DealTemplates{}, err
	}
	if out.UpsellBody, err = parseCopy("upsell.body", cfg.Upsell.Body); err != nil {
		return DealTemplates{}, err
	}

	// discount copy has to show the number; upsell copy must not
	discount, err := renderSample("discount", out.DiscountHeadline, out.DiscountBody)
	if err != nil {
		return DealTemplates{}, err
	}
	if !strings.Contains(discount, samplePercent) {
		return DealTemplates{}, errors.New("deals.discount must render {{.Percent}}")
	}
	upsell, err := renderSample("upsell", out.UpsellHeadline, out.UpsellBody)
	if err != nil {
		return DealTemplates{}, err
	}
	if strings.Contains(upsell, samplePercent) {
		return DealTemplates{}, errors.New("deals.upsell must not render {{.Percent}}")
	}

	return out, nil
}

const samplePercent = "37"

func renderSample(section string, headline, body *template.Template) (string, error) {
	sample := struct {
		Percent  int
		Tier     string
		NextTier string
	}{Percent: 37, Tier: "Gold", NextTier: "Platinum"}

	var buf bytes.Buffer
	if err := headline.Execute(&buf, sample); err != nil {
		return "", fmt.Errorf("deals.%s.headline: %w", section, err)
	}
	buf.WriteString("\n")
	if err := body.Execute(&buf, sample); err != nil {
		return "", fmt.Errorf("deals.%s.body: %w", section, err)
	}
	return buf.String(), nil
}

func parseCopy(name, text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("deals.%s cannot be empty", name)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("deals.%s: %w", name, err)
	}
	return tmpl, nil
}

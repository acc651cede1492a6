package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBuffer(); err != nil {
		return err
	}
	if err := c.validateUploader(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBuffer() error {
	if err := ensurePositiveMap(map[string]int{
		"buffer.elevated_watermark": c.Buffer.ElevatedWatermark,
		"buffer.high_watermark":     c.Buffer.HighWatermark,
	}); err != nil {
		return err
	}
	if c.Buffer.HighWatermark < c.Buffer.ElevatedWatermark {
		return errors.New("buffer.high_watermark must be greater than or equal to buffer.elevated_watermark")
	}
	return nil
}

func (c *Config) validateUploader() error {
	if err := ensurePositiveMap(map[string]int{
		"uploader.poll_interval":      c.Uploader.PollInterval,
		"uploader.escalated_interval": c.Uploader.EscalatedInterval,
		"uploader.request_timeout":    c.Uploader.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Uploader.EscalatedInterval > c.Uploader.PollInterval {
		return errors.New("uploader.escalated_interval must not exceed uploader.poll_interval")
	}
	if !c.Uploader.Enabled {
		return nil
	}
	if c.Uploader.CollectorURL == "" {
		return errors.New("uploader.collector_url must be set when uploader.enabled is true")
	}
	parsed, err := url.Parse(c.Uploader.CollectorURL)
	if err != nil {
		return fmt.Errorf("uploader.collector_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("uploader.collector_url must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("uploader.collector_url must include a host")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

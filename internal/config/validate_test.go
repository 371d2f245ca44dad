package config

import "testing"

func TestValidateAcceptsDefaultConfig(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("DefaultConfig() should be valid, got %v", err)
	}
}

func TestValidateRejectsZeroPools(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Pools = 0
	if err := Validate(cfg); err == nil {
		t.Error("expected an error for engine.pools = 0")
	}
}

func TestValidateRejectsNoEngines(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Engines = nil
	if err := Validate(cfg); err == nil {
		t.Error("expected an error when no engines are configured")
	}
}

func TestValidateRejectsBadProxyRotation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Proxy.Enabled = true
	cfg.Proxy.Rotation = "least_connections"
	if err := Validate(cfg); err == nil {
		t.Error("expected an error for an unsupported proxy rotation mode")
	}
}

func TestValidateAcceptsStickyDomainRotation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Proxy.Enabled = true
	cfg.Proxy.Rotation = "sticky_domain"
	if err := Validate(cfg); err != nil {
		t.Errorf("sticky_domain should be a valid proxy rotation mode, got %v", err)
	}
}

func TestValidateRejectsResumeWithoutUserFolder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resume.Enabled = true
	cfg.Resume.UserFolder = ""
	if err := Validate(cfg); err == nil {
		t.Error("expected an error when resume is enabled without a user folder")
	}
}

func TestValidateRejectsMongoWithoutURI(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Type = "mongo"
	cfg.Storage.MongoURI = ""
	if err := Validate(cfg); err == nil {
		t.Error("expected an error for mongo storage without a URI")
	}
}

func TestValidateRejectsUnsupportedStorageType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Type = "xml"
	if err := Validate(cfg); err == nil {
		t.Error("expected an error for an unsupported storage type")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	if err := Validate(cfg); err == nil {
		t.Error("expected an error for an invalid logging level")
	}
}

func TestValidateRejectsMetricsPortOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 70000
	if err := Validate(cfg); err == nil {
		t.Error("expected an error for an out-of-range metrics port")
	}
}

func TestValidateURLRejectsNonHTTPScheme(t *testing.T) {
	if err := ValidateURL("ftp://example.com"); err == nil {
		t.Error("expected an error for a non-http(s) scheme")
	}
}

func TestValidateURLRejectsMissingHost(t *testing.T) {
	if err := ValidateURL("https:///path"); err == nil {
		t.Error("expected an error for a URL with no host")
	}
}

func TestValidateURLAcceptsHTTPS(t *testing.T) {
	if err := ValidateURL("https://example.com"); err != nil {
		t.Errorf("expected a valid https URL to pass, got %v", err)
	}
}

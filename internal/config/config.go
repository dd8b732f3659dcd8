package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server       ServerConfig       `mapstructure:"server" validate:"required"`
	Database     DatabaseConfig     `mapstructure:"database" validate:"required"`
	Auth         AuthConfig         `mapstructure:"auth" validate:"required"`
	Roles        RolesConfig        `mapstructure:"roles" validate:"required"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Notification NotificationConfig `mapstructure:"notification"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`

	// TokenTransport selects how the token pair travels to the client:
	// "bearer" returns it in the response body, "cookie" sets HttpOnly
	// cookies. The middleware accepts both on inbound requests.
	TokenTransport string `mapstructure:"token_transport" validate:"required,oneof=bearer cookie"`

	// CookieSecure controls the Secure attribute on auth cookies.
	// Disable only for local development over plain HTTP.
	CookieSecure bool `mapstructure:"cookie_secure"`
}

// RolesConfig selects which role taxonomy the deployment uses.
type RolesConfig struct {
	// Scheme is either "standard" (admin/manager/member) or
	// "compact" (admin/user).
	Scheme string `mapstructure:"scheme" validate:"required,oneof=standard compact"`
}

// RedisConfig contains settings for the refresh-token blacklist backend.
// When Addr is empty the application falls back to the in-memory blacklist,
// which is only suitable for single-node deployments.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotificationConfig contains SMTP settings for assignment emails.
// When Host is empty, notifications are logged instead of sent.
type NotificationConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from" validate:"omitempty,email"`
}

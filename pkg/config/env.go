package config

const EnvPrefix = "ATTOS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv             = "ATTOS_APP_ENV"
	EnvPort               = "ATTOS_APP_PORT"
	EnvLogLevel           = "ATTOS_LOG_LEVEL"
	EnvStoreDriver        = "ATTOS_STORE_DRIVER"
	EnvDBDSN              = "ATTOS_DB_DSN"
	EnvRedisURL           = "ATTOS_REDIS_URL"
	EnvRedisAddr          = "ATTOS_REDIS_ADDR"
	EnvDeliveryFee        = "ATTOS_DELIVERY_FEE"
	EnvFreeDeliveryAmount = "ATTOS_FREE_DELIVERY_THRESHOLD"
	EnvTaxRate            = "ATTOS_TAX_RATE"
	EnvPromoCodes         = "ATTOS_PROMO_CODES"
	EnvDwellOnTheWay      = "ATTOS_DWELL_ON_THE_WAY"
	EnvLeadTime           = "ATTOS_DELIVERY_LEAD_TIME"
	EnvPubSubEnabled      = "ATTOS_PUBSUB_ENABLED"
	EnvGCPProjectID       = "ATTOS_GCP_PROJECT_ID"
	EnvGCPCredentialsJSON = "ATTOS_GCP_CREDENTIALS_JSON"
	EnvGCPCredentialsFile = "ATTOS_GCP_CREDENTIALS_FILE"
	EnvCatalogPath        = "ATTOS_CATALOG_PATH"
)

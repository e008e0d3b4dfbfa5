package util

const DateFormat = "2006-01-02"

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	StoreRedis  = "redis"
	StoreMySQL  = "mysql"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// gin.Context 中的 key
const ContextClaimsKey = "claims"

const MimeJSON = "application/json"

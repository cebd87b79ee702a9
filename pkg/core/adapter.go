package core

// AdapterConfig holds configuration for connecting to a database.
// Password is plaintext; it is produced by decrypting Connection.EncryptedPassword.
type AdapterConfig struct {
	Type     DialectName
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// ColumnSchema describes one column returned by schema introspection.
type ColumnSchema struct {
	ColumnName string  `json:"columnName" yaml:"column_name"`
	DataType   string  `json:"dataType" yaml:"data_type"`
	Nullable   bool    `json:"nullable" yaml:"nullable"`
	Default    *string `json:"default,omitempty" yaml:"default,omitempty"`
}

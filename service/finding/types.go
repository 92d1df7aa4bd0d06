// Package finding defines the result type shared by every posture evaluator.
package finding

// Category identifies the rule that produced a finding.
type Category string

// Finding categories
const (
	NoMfa            Category = "NoMfa"
	StalePassword    Category = "StalePassword"
	StaleAccessKey   Category = "StaleAccessKey"
	UnusedAccessKey  Category = "UnusedAccessKey"
	AdminViaPolicy   Category = "AdminViaPolicy"
	AdminViaGroup    Category = "AdminViaGroup"
	OpenCriticalPort Category = "OpenCriticalPort"
	PublicInstance   Category = "PublicInstance"
	MissingKeyPair   Category = "MissingKeyPair"
)

// Severity constants for findings
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
	SeverityInfo     = "INFO"
)

// Well-known detail keys.
const (
	KeyCategory = "category"
	KeySubject  = "subject"
	KeyPolicy   = "policy"
	KeyGroup    = "group"
	KeyAccessID = "access_key_id"
	KeyStatus   = "status"
	KeyAgeDays  = "age_days"
	KeyLastUsed = "last_used"
	KeyCreated  = "created"
	KeyChanged  = "password_last_changed"
	KeyGroupID  = "group_id"
	KeyCIDR     = "cidr"
	KeyPort     = "port"
	KeyProtocol = "protocol"
	KeyService  = "service"
	KeyPublicIP = "public_ip"
	KeyState    = "state"
)

// DetailKeys lists every detail key an evaluator emits, in column order.
var DetailKeys = []string{
	KeyPolicy, KeyGroup, KeyAccessID, KeyStatus, KeyAgeDays, KeyLastUsed, KeyCreated, KeyChanged,
	KeyGroupID, KeyCIDR, KeyPort, KeyProtocol, KeyService, KeyPublicIP, KeyState,
}

// Finding is a single policy violation. Subject is an identity name,
// an instance id or a security group id depending on Category.
type Finding struct {
	Category Category          `json:"category"`
	Subject  string            `json:"subject"`
	Detail   map[string]string `json:"detail,omitempty"`
}

// Package exposure matches security group ingress rules and instance
// metadata against the network exposure policy.
package exposure

// SecurityGroupRule is one ingress permission. A nil port means the bound
// is absent; both nil means every port.
type SecurityGroupRule struct {
	GroupID    string   `yaml:"group_id" json:"group_id"`
	GroupName  string   `yaml:"group_name" json:"group_name"`
	Protocol   string   `yaml:"protocol" json:"protocol"`
	FromPort   *int32   `yaml:"from_port" json:"from_port,omitempty"`
	ToPort     *int32   `yaml:"to_port" json:"to_port,omitempty"`
	CIDRRanges []string `yaml:"cidr_ranges" json:"cidr_ranges"`
}

// Instance is the subset of EC2 instance metadata the evaluator reads.
type Instance struct {
	InstanceID  string `yaml:"instance_id" json:"instance_id"`
	PublicIP    string `yaml:"public_ip" json:"public_ip,omitempty"`
	KeyPairName string `yaml:"key_name" json:"key_name,omitempty"`
	State       string `yaml:"state" json:"state"`
}

// DefaultCriticalPorts are SSH, HTTP and RDP.
var DefaultCriticalPorts = []int32{22, 80, 3389}

// ServiceNames labels well-known critical ports.
var ServiceNames = map[int32]string{
	20:    "FTP-Data",
	21:    "FTP",
	22:    "SSH/SFTP",
	23:    "Telnet",
	25:    "SMTP",
	80:    "HTTP",
	443:   "HTTPS",
	445:   "SMB",
	1433:  "MSSQL",
	3306:  "MySQL",
	3389:  "RDP",
	5432:  "PostgreSQL",
	6379:  "Redis",
	9200:  "Elasticsearch",
	27017: "MongoDB",
}

// Package ec2security collects network exposure data from EC2: security
// group ingress rules and instance addressing.
package ec2security

import (
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/thirukguru/aws-posture/service/provider"
)

// EC2ClientAPI defines the EC2 client methods used by this service.
type EC2ClientAPI interface {
	ec2.DescribeSecurityGroupsAPIClient
	ec2.DescribeInstancesAPIClient
}

// Service is the live EC2 network provider.
type Service interface {
	provider.NetworkProvider
}

type service struct {
	client EC2ClientAPI
}

package ec2security

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/thirukguru/aws-posture/service/exposure"
)

// NewService creates a new EC2 network service
func NewService(cfg aws.Config) Service {
	return &service{
		client: ec2.NewFromConfig(cfg),
	}
}

// FetchSecurityGroupRules flattens every ingress permission of every
// security group into one rule carrying both IPv4 and IPv6 ranges.
// Permissions that only reference other groups or prefix lists are kept
// with no CIDRs so they still show up in listings.
func (s *service) FetchSecurityGroupRules(ctx context.Context) ([]exposure.SecurityGroupRule, error) {
	var rules []exposure.SecurityGroupRule

	paginator := ec2.NewDescribeSecurityGroupsPaginator(s.client, &ec2.DescribeSecurityGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describing security groups: %w", err)
		}
		for _, sg := range page.SecurityGroups {
			rules = append(rules, ingressRules(sg)...)
		}
	}

	return rules, nil
}

func ingressRules(sg types.SecurityGroup) []exposure.SecurityGroupRule {
	rules := make([]exposure.SecurityGroupRule, 0, len(sg.IpPermissions))
	for _, perm := range sg.IpPermissions {
		rule := exposure.SecurityGroupRule{
			GroupID:   aws.ToString(sg.GroupId),
			GroupName: aws.ToString(sg.GroupName),
			Protocol:  aws.ToString(perm.IpProtocol),
			FromPort:  perm.FromPort,
			ToPort:    perm.ToPort,
		}
		for _, r := range perm.IpRanges {
			if r.CidrIp != nil {
				rule.CIDRRanges = append(rule.CIDRRanges, *r.CidrIp)
			}
		}
		for _, r := range perm.Ipv6Ranges {
			if r.CidrIpv6 != nil {
				rule.CIDRRanges = append(rule.CIDRRanges, *r.CidrIpv6)
			}
		}
		rules = append(rules, rule)
	}
	return rules
}

// FetchInstances lists every instance regardless of state.
func (s *service) FetchInstances(ctx context.Context) ([]exposure.Instance, error) {
	var instances []exposure.Instance

	paginator := ec2.NewDescribeInstancesPaginator(s.client, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describing instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				instance := exposure.Instance{
					InstanceID:  aws.ToString(inst.InstanceId),
					PublicIP:    aws.ToString(inst.PublicIpAddress),
					KeyPairName: aws.ToString(inst.KeyName),
				}
				if inst.State != nil {
					instance.State = string(inst.State.Name)
				}
				instances = append(instances, instance)
			}
		}
	}

	return instances, nil
}

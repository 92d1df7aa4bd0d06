package ec2security

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEC2Client struct {
	sgPages   []*ec2.DescribeSecurityGroupsOutput
	sgCalls   int
	instances *ec2.DescribeInstancesOutput
	err       error
}

func (m *mockEC2Client) DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	page := m.sgPages[m.sgCalls]
	m.sgCalls++
	return page, nil
}

func (m *mockEC2Client) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.instances, nil
}

func TestFetchSecurityGroupRules(t *testing.T) {
	client := &mockEC2Client{sgPages: []*ec2.DescribeSecurityGroupsOutput{
		{
			NextToken: aws.String("page-2"),
			SecurityGroups: []types.SecurityGroup{{
				GroupId:   aws.String("sg-web"),
				GroupName: aws.String("web"),
				IpPermissions: []types.IpPermission{
					{
						IpProtocol: aws.String("tcp"),
						FromPort:   aws.Int32(22),
						ToPort:     aws.Int32(22),
						IpRanges:   []types.IpRange{{CidrIp: aws.String("0.0.0.0/0")}},
						Ipv6Ranges: []types.Ipv6Range{{CidrIpv6: aws.String("::/0")}},
					},
				},
			}},
		},
		{
			SecurityGroups: []types.SecurityGroup{{
				GroupId:   aws.String("sg-all"),
				GroupName: aws.String("all"),
				IpPermissions: []types.IpPermission{
					{IpProtocol: aws.String("-1"), IpRanges: []types.IpRange{{CidrIp: aws.String("10.0.0.0/8")}}},
				},
			}},
		},
	}}
	svc := &service{client: client}

	rules, err := svc.FetchSecurityGroupRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, 2, client.sgCalls)

	assert.Equal(t, "sg-web", rules[0].GroupID)
	assert.Equal(t, []string{"0.0.0.0/0", "::/0"}, rules[0].CIDRRanges)
	assert.Equal(t, int32(22), *rules[0].FromPort)

	assert.Equal(t, "-1", rules[1].Protocol)
	assert.Nil(t, rules[1].FromPort)
	assert.Nil(t, rules[1].ToPort)
}

func TestFetchInstances(t *testing.T) {
	client := &mockEC2Client{instances: &ec2.DescribeInstancesOutput{
		Reservations: []types.Reservation{{
			Instances: []types.Instance{
				{
					InstanceId:      aws.String("i-1"),
					PublicIpAddress: aws.String("203.0.113.5"),
					State:           &types.InstanceState{Name: types.InstanceStateNameStopped},
				},
				{
					InstanceId: aws.String("i-2"),
					KeyName:    aws.String("ops"),
				},
			},
		}},
	}}
	svc := &service{client: client}

	instances, err := svc.FetchInstances(context.Background())
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, "203.0.113.5", instances[0].PublicIP)
	assert.Equal(t, "stopped", instances[0].State)
	assert.Empty(t, instances[0].KeyPairName)
	assert.Equal(t, "ops", instances[1].KeyPairName)
	assert.Empty(t, instances[1].State)
}

func TestFetchErrorsPropagate(t *testing.T) {
	svc := &service{client: &mockEC2Client{err: errors.New("UnauthorizedOperation")}}

	_, err := svc.FetchSecurityGroupRules(context.Background())
	assert.ErrorContains(t, err, "UnauthorizedOperation")
	_, err = svc.FetchInstances(context.Background())
	assert.ErrorContains(t, err, "UnauthorizedOperation")
}

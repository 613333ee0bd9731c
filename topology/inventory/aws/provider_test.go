package aws

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ngerrors "netgraph/pkg/errors"
	"netgraph/topology/graph"
)

// fakeEC2 serves canned responses and records the order of calls
type fakeEC2 struct {
	instances []types.Reservation
	groups    []types.SecurityGroup
	vpcs      []types.Vpc
	subnets   []types.Subnet
	gateways  []types.InternetGateway

	fail  map[string]error
	calls []string
}

func (f *fakeEC2) record(op string) error {
	f.calls = append(f.calls, op)
	return f.fail[op]
}

func (f *fakeEC2) DescribeInstances(_ context.Context, _ *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if err := f.record("DescribeInstances"); err != nil {
		return nil, err
	}
	return &ec2.DescribeInstancesOutput{Reservations: f.instances}, nil
}

func (f *fakeEC2) DescribeSecurityGroups(_ context.Context, _ *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	if err := f.record("DescribeSecurityGroups"); err != nil {
		return nil, err
	}
	return &ec2.DescribeSecurityGroupsOutput{SecurityGroups: f.groups}, nil
}

func (f *fakeEC2) DescribeVpcs(_ context.Context, _ *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	if err := f.record("DescribeVpcs"); err != nil {
		return nil, err
	}
	return &ec2.DescribeVpcsOutput{Vpcs: f.vpcs}, nil
}

func (f *fakeEC2) DescribeSubnets(_ context.Context, _ *ec2.DescribeSubnetsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	if err := f.record("DescribeSubnets"); err != nil {
		return nil, err
	}
	return &ec2.DescribeSubnetsOutput{Subnets: f.subnets}, nil
}

func (f *fakeEC2) DescribeInternetGateways(_ context.Context, _ *ec2.DescribeInternetGatewaysInput, _ ...func(*ec2.Options)) (*ec2.DescribeInternetGatewaysOutput, error) {
	if err := f.record("DescribeInternetGateways"); err != nil {
		return nil, err
	}
	return &ec2.DescribeInternetGatewaysOutput{InternetGateways: f.gateways}, nil
}

func tag(key, value string) types.Tag {
	return types.Tag{Key: awssdk.String(key), Value: awssdk.String(value)}
}

func peer(groupID string) types.IpPermission {
	return types.IpPermission{
		IpProtocol:       awssdk.String("tcp"),
		UserIdGroupPairs: []types.UserIdGroupPair{{GroupId: awssdk.String(groupID)}},
	}
}

func color(t *testing.T, g *graph.DependencyGraph, name string) string {
	t.Helper()
	n, ok := g.Node(name)
	require.True(t, ok, "node %s not found", name)
	return n.Color
}

func TestFetchAll(t *testing.T) {
	client := &fakeEC2{
		instances: []types.Reservation{
			{Instances: []types.Instance{{InstanceId: awssdk.String("i-1")}, {InstanceId: awssdk.String("i-2")}}},
			{Instances: []types.Instance{{InstanceId: awssdk.String("i-3")}}},
		},
		vpcs: []types.Vpc{{VpcId: awssdk.String("vpc-1")}},
	}

	s, err := NewFetcher(client).FetchAll(context.Background(), "eu-west-1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"DescribeInstances",
		"DescribeSecurityGroups",
		"DescribeVpcs",
		"DescribeSubnets",
		"DescribeInternetGateways",
	}, client.calls)

	assert.Equal(t, "eu-west-1", s.Region)
	assert.NotEmpty(t, s.RunID.String())
	assert.False(t, s.FetchedAt.IsZero())

	require.Len(t, s.Instances, 3, "reservations are flattened")
	assert.Equal(t, "i-3", awssdk.ToString(s.Instances[2].InstanceId))
	assert.Empty(t, s.SecurityGroups)
	assert.NotNil(t, s.SecurityGroups)
	assert.Equal(t, map[string]int{
		KindInstance:        3,
		KindSecurityGroup:   0,
		KindVpc:             1,
		KindSubnet:          0,
		KindInternetGateway: 0,
	}, s.Counts())
}

func TestFetchAllErrors(t *testing.T) {
	t.Run("service error", func(t *testing.T) {
		client := &fakeEC2{fail: map[string]error{
			"DescribeVpcs": &smithy.GenericAPIError{Code: "UnauthorizedOperation", Message: "not allowed"},
		}}

		s, err := NewFetcher(client).FetchAll(context.Background(), "us-east-1")
		require.Error(t, err)
		assert.Nil(t, s)
		assert.Equal(t, []string{"DescribeInstances", "DescribeSecurityGroups", "DescribeVpcs"}, client.calls,
			"fetch stops at the first failure")

		var ie *ngerrors.InventoryError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, ngerrors.ErrCodeAPIFailure, ie.Code)
		assert.Equal(t, "DescribeVpcs", ie.Op)
		assert.Equal(t, KindVpc, ie.Kind)
		assert.Equal(t, "aws", ie.Provider)
		assert.Equal(t, "UnauthorizedOperation", ngerrors.ServiceCode(err))
	})

	t.Run("transport error", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		client := &fakeEC2{fail: map[string]error{"DescribeInstances": cause}}

		_, err := NewFetcher(client).FetchAll(context.Background(), "us-east-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Len(t, client.calls, 1)

		var ie *ngerrors.InventoryError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, ngerrors.ErrCodeRequestFailure, ie.Code)
	})
}

func TestInstanceMapper(t *testing.T) {
	s := &Snapshot{Instances: []types.Instance{{
		InstanceId: awssdk.String("i-1"),
		SecurityGroups: []types.GroupIdentifier{
			{GroupId: awssdk.String("sg-0001"), GroupName: awssdk.String("sg-web")},
		},
	}}}

	g := graph.New()
	assert.Equal(t, 1, (&InstanceMapper{}).Map(g, s))

	assert.Equal(t, 2, g.Order())
	assert.True(t, g.HasEdge("i-1", "sg-web"), "instance links to the group name, not its id")
	assert.False(t, g.HasNode("sg-0001"))
	assert.Equal(t, ColorInstance, color(t, g, "i-1"))
	assert.Equal(t, graph.DefaultColor, color(t, g, "sg-web"))
}

func TestSecurityGroupMapper(t *testing.T) {
	s := &Snapshot{SecurityGroups: []types.SecurityGroup{{
		GroupId:   awssdk.String("sg-0001"),
		GroupName: awssdk.String("sg-a"),
		IpPermissions: []types.IpPermission{
			peer("sg-b"),
			{
				IpProtocol: awssdk.String("tcp"),
				UserIdGroupPairs: []types.UserIdGroupPair{
					{GroupId: awssdk.String("sg-c")},
					{GroupId: awssdk.String("sg-d")},
				},
			},
			{IpProtocol: awssdk.String("-1"), IpRanges: []types.IpRange{{CidrIp: awssdk.String("0.0.0.0/0")}}},
		},
		IpPermissionsEgress: []types.IpPermission{peer("sg-b")},
	}}}

	g := graph.New()
	(&SecurityGroupMapper{}).Map(g, s)

	assert.Equal(t, []string{"sg-b", "sg-c"}, g.Neighbors("sg-a"), "only the first peer of a rule is linked")
	assert.Equal(t, 2, g.Size(), "ingress and egress to the same peer make one edge")
	assert.Equal(t, ColorSecurityGroup, color(t, g, "sg-a"))
	assert.False(t, g.HasNode("sg-0001"))
	assert.False(t, g.HasNode("sg-d"))
}

func TestTaggedMappers(t *testing.T) {
	s := &Snapshot{
		Vpcs: []types.Vpc{
			{VpcId: awssdk.String("vpc-1")},
			{VpcId: awssdk.String("vpc-2"), Tags: []types.Tag{tag("Name", "prod"), tag("Owner", "")}},
		},
		Subnets: []types.Subnet{
			{SubnetId: awssdk.String("subnet-1"), Tags: []types.Tag{tag("Name", "prod"), tag("Arn", "a:b:c")}},
		},
		InternetGateways: []types.InternetGateway{
			{InternetGatewayId: awssdk.String("igw-1"), Tags: []types.Tag{tag("Name", "edge")}},
		},
	}

	g := graph.New()
	(&VpcMapper{}).Map(g, s)
	(&SubnetMapper{}).Map(g, s)
	(&InternetGatewayMapper{}).Map(g, s)

	assert.True(t, g.HasNode("vpc-1"))
	assert.Equal(t, 0, g.Degree("vpc-1"))
	assert.True(t, g.HasEdge("vpc-2", "prod"))
	assert.True(t, g.HasEdge("subnet-1", "prod"), "shared tag values join resources")
	assert.True(t, g.HasEdge("subnet-1", "a_b_c"))
	assert.True(t, g.HasEdge("igw-1", "edge"))
	assert.Equal(t, 1, g.Degree("vpc-2"), "empty tag values are skipped")

	assert.Equal(t, ColorVpc, color(t, g, "vpc-2"))
	assert.Equal(t, ColorSubnet, color(t, g, "subnet-1"))
	assert.Equal(t, ColorInternetGateway, color(t, g, "igw-1"))
	assert.Equal(t, graph.DefaultColor, color(t, g, "prod"))
}

func TestMappersSkipMissingIDs(t *testing.T) {
	s := &Snapshot{
		Instances:      []types.Instance{{SecurityGroups: []types.GroupIdentifier{{GroupName: awssdk.String("sg-web")}}}},
		SecurityGroups: []types.SecurityGroup{{IpPermissions: []types.IpPermission{peer("sg-b")}}},
		Vpcs:           []types.Vpc{{Tags: []types.Tag{tag("Name", "prod")}}},
	}

	g := NewProvider(&fakeEC2{}, "us-east-1").BuildGraph(s)
	assert.Equal(t, 0, g.Order())
}

func TestBuildGraphOrder(t *testing.T) {
	// An instance tagged into a security group name: the later mapper wins
	s := &Snapshot{
		Instances: []types.Instance{{
			InstanceId:     awssdk.String("i-1"),
			SecurityGroups: []types.GroupIdentifier{{GroupName: awssdk.String("sg-web")}},
		}},
		SecurityGroups: []types.SecurityGroup{{GroupName: awssdk.String("sg-web")}},
		Vpcs: []types.Vpc{{
			VpcId: awssdk.String("vpc-1"),
			Tags:  []types.Tag{tag("Name", "i-1")},
		}},
	}

	p := NewProvider(&fakeEC2{}, "us-east-1")
	assert.Equal(t, []string{
		KindInstance, KindSecurityGroup, KindVpc, KindSubnet, KindInternetGateway,
	}, p.Kinds())

	g := p.BuildGraph(s)
	assert.Equal(t, ColorSecurityGroup, color(t, g, "sg-web"))
	assert.Equal(t, ColorInstance, color(t, g, "i-1"), "tag value edges do not repaint existing nodes")
	assert.True(t, g.HasEdge("vpc-1", "i-1"))
}

func TestProvider(t *testing.T) {
	client := &fakeEC2{
		instances: []types.Reservation{{Instances: []types.Instance{{
			InstanceId:     awssdk.String("i-1"),
			SecurityGroups: []types.GroupIdentifier{{GroupName: awssdk.String("sg-web")}},
		}}}},
		groups: []types.SecurityGroup{
			{GroupName: awssdk.String("sg-a"), IpPermissions: []types.IpPermission{peer("sg-b")}},
			{GroupName: awssdk.String("sg-b"), IpPermissionsEgress: []types.IpPermission{peer("sg-a")}},
		},
		vpcs: []types.Vpc{{VpcId: awssdk.String("vpc-1")}},
	}

	p := NewProvider(client, "us-east-1")
	assert.Equal(t, "aws", p.Name())

	s, err := p.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.Region)

	g := p.BuildGraph(s)
	assert.True(t, g.HasEdge("i-1", "sg-web"))
	assert.True(t, g.HasNode("vpc-1"))

	// sg-a names sg-b by id and sg-b names sg-a: both collapse onto one edge
	assert.True(t, g.HasEdge("sg-a", "sg-b"))
	assert.Equal(t, 1, g.Degree("sg-a"))

	g.FilterByMinDegree(1)
	assert.False(t, g.HasNode("vpc-1"), "untagged VPC is isolated")
	assert.Equal(t, 4, g.Order())
	assert.Equal(t, 2, g.Size())
}

package aws

import (
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"netgraph/topology/graph"
	"netgraph/topology/inventory"
)

// Node colors per resource kind
const (
	ColorInstance        = "lightblue"
	ColorSecurityGroup   = "red"
	ColorVpc             = "yellow"
	ColorSubnet          = "lightgreen"
	ColorInternetGateway = "lightgrey"
)

// RegisterAllMappers registers the EC2 mappers in mapping order
func RegisterAllMappers(registry *inventory.Registry[*Snapshot]) {
	registry.Register(
		&InstanceMapper{},
		&SecurityGroupMapper{},
		&VpcMapper{},
		&SubnetMapper{},
		&InternetGatewayMapper{},
	)
}

// =============================================================================
// Instance Mapper
// =============================================================================

// InstanceMapper links each instance to the names of its security groups
type InstanceMapper struct{}

func (m *InstanceMapper) Kind() string { return KindInstance }

func (m *InstanceMapper) Map(g *graph.DependencyGraph, s *Snapshot) int {
	for _, instance := range s.Instances {
		id := awssdk.ToString(instance.InstanceId)
		if id == "" {
			continue
		}
		g.AddNode(id, graph.WithColor(ColorInstance))

		for _, sg := range instance.SecurityGroups {
			if name := awssdk.ToString(sg.GroupName); name != "" {
				g.AddEdge(id, name)
			}
		}
	}
	return len(s.Instances)
}

// =============================================================================
// Security Group Mapper
// =============================================================================

// SecurityGroupMapper links a group, by name, to the peer group id named by
// each of its ingress and egress rules. Only the first peer of a rule is
// used.
type SecurityGroupMapper struct{}

func (m *SecurityGroupMapper) Kind() string { return KindSecurityGroup }

func (m *SecurityGroupMapper) Map(g *graph.DependencyGraph, s *Snapshot) int {
	for _, sg := range s.SecurityGroups {
		name := awssdk.ToString(sg.GroupName)
		if name == "" {
			continue
		}
		g.AddNode(name, graph.WithColor(ColorSecurityGroup))

		for _, perms := range [][]types.IpPermission{sg.IpPermissions, sg.IpPermissionsEgress} {
			for _, perm := range perms {
				if peer := firstPeerGroup(perm); peer != "" {
					g.AddEdge(name, peer)
				}
			}
		}
	}
	return len(s.SecurityGroups)
}

func firstPeerGroup(perm types.IpPermission) string {
	if len(perm.UserIdGroupPairs) == 0 {
		return ""
	}
	return awssdk.ToString(perm.UserIdGroupPairs[0].GroupId)
}

// =============================================================================
// Tagged resource mappers (VPC, subnet, internet gateway)
// =============================================================================

// VpcMapper links each VPC to its tag values
type VpcMapper struct{}

func (m *VpcMapper) Kind() string { return KindVpc }

func (m *VpcMapper) Map(g *graph.DependencyGraph, s *Snapshot) int {
	for _, vpc := range s.Vpcs {
		addTagged(g, awssdk.ToString(vpc.VpcId), ColorVpc, vpc.Tags)
	}
	return len(s.Vpcs)
}

// SubnetMapper links each subnet to its tag values
type SubnetMapper struct{}

func (m *SubnetMapper) Kind() string { return KindSubnet }

func (m *SubnetMapper) Map(g *graph.DependencyGraph, s *Snapshot) int {
	for _, subnet := range s.Subnets {
		addTagged(g, awssdk.ToString(subnet.SubnetId), ColorSubnet, subnet.Tags)
	}
	return len(s.Subnets)
}

// InternetGatewayMapper links each internet gateway to its tag values
type InternetGatewayMapper struct{}

func (m *InternetGatewayMapper) Kind() string { return KindInternetGateway }

func (m *InternetGatewayMapper) Map(g *graph.DependencyGraph, s *Snapshot) int {
	for _, igw := range s.InternetGateways {
		addTagged(g, awssdk.ToString(igw.InternetGatewayId), ColorInternetGateway, igw.Tags)
	}
	return len(s.InternetGateways)
}

// addTagged adds a resource node keyed by its id and an edge to the node
// named by each tag value. Resources without an id and empty tag values
// add nothing.
func addTagged(g *graph.DependencyGraph, id, color string, tags []types.Tag) {
	if id == "" {
		return
	}
	g.AddNode(id, graph.WithColor(color))

	for _, tag := range tags {
		if value := awssdk.ToString(tag.Value); value != "" {
			g.AddEdge(id, value)
		}
	}
}

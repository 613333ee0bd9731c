// Package aws provides the EC2 network inventory: fetching instances,
// security groups, VPCs, subnets and internet gateways, and mapping them
// into a dependency graph.
package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	ngerrors "netgraph/pkg/errors"
)

const providerName = "aws"

// Resource kinds, in fetch and mapping order
const (
	KindInstance        = "instance"
	KindSecurityGroup   = "security_group"
	KindVpc             = "vpc"
	KindSubnet          = "subnet"
	KindInternetGateway = "internet_gateway"
)

// EC2API is the subset of the EC2 client the fetcher calls
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
	DescribeInternetGateways(ctx context.Context, params *ec2.DescribeInternetGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInternetGatewaysOutput, error)
}

var _ EC2API = (*ec2.Client)(nil)

// Snapshot is one run's view of the region's network inventory
type Snapshot struct {
	RunID     uuid.UUID
	Region    string
	FetchedAt time.Time

	Instances        []types.Instance
	SecurityGroups   []types.SecurityGroup
	Vpcs             []types.Vpc
	Subnets          []types.Subnet
	InternetGateways []types.InternetGateway
}

// Counts returns the number of records per kind
func (s *Snapshot) Counts() map[string]int {
	return map[string]int{
		KindInstance:        len(s.Instances),
		KindSecurityGroup:   len(s.SecurityGroups),
		KindVpc:             len(s.Vpcs),
		KindSubnet:          len(s.Subnets),
		KindInternetGateway: len(s.InternetGateways),
	}
}

// Fetcher issues one list call per resource kind. Only the first page of
// each response is read.
type Fetcher struct {
	client EC2API
}

// NewFetcher creates a fetcher over an EC2 client
func NewFetcher(client EC2API) *Fetcher {
	return &Fetcher{client: client}
}

// FetchAll retrieves every kind in order: instances, security groups, VPCs,
// subnets, internet gateways. The first failure aborts the fetch.
func (f *Fetcher) FetchAll(ctx context.Context, region string) (*Snapshot, error) {
	s := &Snapshot{
		RunID:     uuid.New(),
		Region:    region,
		FetchedAt: time.Now().UTC(),
	}

	var err error
	if s.Instances, err = f.Instances(ctx); err != nil {
		return nil, err
	}
	if s.SecurityGroups, err = f.SecurityGroups(ctx); err != nil {
		return nil, err
	}
	if s.Vpcs, err = f.Vpcs(ctx); err != nil {
		return nil, err
	}
	if s.Subnets, err = f.Subnets(ctx); err != nil {
		return nil, err
	}
	if s.InternetGateways, err = f.InternetGateways(ctx); err != nil {
		return nil, err
	}

	log.Info().
		Str("run_id", s.RunID.String()).
		Str("region", s.Region).
		Interface("counts", s.Counts()).
		Msg("Inventory fetched")
	return s, nil
}

// Instances flattens the reservations of a single DescribeInstances call
func (f *Fetcher) Instances(ctx context.Context) ([]types.Instance, error) {
	resp, err := f.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{})
	if err != nil {
		return nil, ngerrors.NewAPIError(providerName, "DescribeInstances", KindInstance, err)
	}

	instances := make([]types.Instance, 0)
	for _, reservation := range resp.Reservations {
		instances = append(instances, reservation.Instances...)
	}
	logFetched(KindInstance, instances)
	return instances, nil
}

// SecurityGroups lists the region's security groups
func (f *Fetcher) SecurityGroups(ctx context.Context) ([]types.SecurityGroup, error) {
	resp, err := f.client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{})
	if err != nil {
		return nil, ngerrors.NewAPIError(providerName, "DescribeSecurityGroups", KindSecurityGroup, err)
	}

	groups := append([]types.SecurityGroup{}, resp.SecurityGroups...)
	logFetched(KindSecurityGroup, groups)
	return groups, nil
}

// Vpcs lists the region's VPCs
func (f *Fetcher) Vpcs(ctx context.Context) ([]types.Vpc, error) {
	resp, err := f.client.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{})
	if err != nil {
		return nil, ngerrors.NewAPIError(providerName, "DescribeVpcs", KindVpc, err)
	}

	vpcs := append([]types.Vpc{}, resp.Vpcs...)
	logFetched(KindVpc, vpcs)
	return vpcs, nil
}

// Subnets lists the region's subnets
func (f *Fetcher) Subnets(ctx context.Context) ([]types.Subnet, error) {
	resp, err := f.client.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{})
	if err != nil {
		return nil, ngerrors.NewAPIError(providerName, "DescribeSubnets", KindSubnet, err)
	}

	subnets := append([]types.Subnet{}, resp.Subnets...)
	logFetched(KindSubnet, subnets)
	return subnets, nil
}

// InternetGateways lists the region's internet gateways
func (f *Fetcher) InternetGateways(ctx context.Context) ([]types.InternetGateway, error) {
	resp, err := f.client.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{})
	if err != nil {
		return nil, ngerrors.NewAPIError(providerName, "DescribeInternetGateways", KindInternetGateway, err)
	}

	gateways := append([]types.InternetGateway{}, resp.InternetGateways...)
	logFetched(KindInternetGateway, gateways)
	return gateways, nil
}

// logFetched reports the count and, at debug level, an example record.
// Empty lists have no example.
func logFetched[T any](kind string, records []T) {
	log.Info().Str("kind", kind).Int("count", len(records)).Msg("Fetched resources")
	if len(records) > 0 {
		log.Debug().Str("kind", kind).Interface("example", records[0]).Msg("Example resource")
	}
}

// Package awsec2 is the EC2 control plane adapter. All calls go through the
// retry invoker; throttling and transport failures are retried, API verdicts
// are not.
package awsec2

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/ec2keeper/ec2keeper/internal/infra/retry"
	"github.com/ec2keeper/ec2keeper/internal/logic/alerting"
	"github.com/ec2keeper/ec2keeper/internal/logic/control"
)

// api is the slice of the EC2 client the adapter uses.
type api interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	RebootInstances(ctx context.Context, params *ec2.RebootInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RebootInstancesOutput, error)
}

// Adapter implements the control plane port of both the instance control
// service and the alert engine.
type Adapter struct {
	logger   *slog.Logger
	client   api
	invoker  *retry.Invoker
	region   string
	tagKey   string
	tagValue string
}

// New creates a new EC2 adapter. tagKey/tagValue select the managed fleet.
func New(
	logger *slog.Logger,
	client api,
	invoker *retry.Invoker,
	region string,
	tagKey string,
	tagValue string,
) *Adapter {
	return &Adapter{
		logger:   logger,
		client:   client,
		invoker:  invoker,
		region:   region,
		tagKey:   tagKey,
		tagValue: tagValue,
	}
}

var (
	_ control.Cloud  = (*Adapter)(nil)
	_ alerting.Cloud = (*Adapter)(nil)
)

func (a *Adapter) DescribeInstanceQuery(ctx context.Context, instanceID string) (*control.Instance, error) {
	raw, err := a.describeOne(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	inst := toDomainInstance(raw, a.region)

	return &inst, nil
}

func (a *Adapter) DescribeManagedQuery(ctx context.Context) ([]control.Instance, error) {
	raws, err := a.describeManaged(ctx)
	if err != nil {
		return nil, err
	}

	instances := make([]control.Instance, 0, len(raws))
	for i := range raws {
		instances = append(instances, toDomainInstance(&raws[i], a.region))
	}

	return instances, nil
}

// ManagedInstancesQuery is the alert engine's view of the managed fleet.
func (a *Adapter) ManagedInstancesQuery(ctx context.Context) ([]alerting.Instance, error) {
	raws, err := a.describeManaged(ctx)
	if err != nil {
		return nil, err
	}

	instances := make([]alerting.Instance, 0, len(raws))
	for i := range raws {
		instances = append(instances, toAlertingInstance(&raws[i], a.region))
	}

	return instances, nil
}

func (a *Adapter) StartCommand(ctx context.Context, instanceID string) (*control.StateChange, error) {
	out, err := retry.Do(ctx, a.invoker, "start instance",
		func(ctx context.Context) (*ec2.StartInstancesOutput, error) {
			out, err := a.client.StartInstances(ctx, &ec2.StartInstancesInput{
				InstanceIds: []string{instanceID},
			})

			return out, classifyError(err, instanceID)
		})
	if err != nil {
		return nil, err
	}

	if len(out.StartingInstances) == 0 {
		return nil, &InstanceNotFoundError{instanceID: instanceID}
	}

	return toStateChange(out.StartingInstances[0]), nil
}

func (a *Adapter) StopCommand(ctx context.Context, instanceID string) (*control.StateChange, error) {
	out, err := retry.Do(ctx, a.invoker, "stop instance",
		func(ctx context.Context) (*ec2.StopInstancesOutput, error) {
			out, err := a.client.StopInstances(ctx, &ec2.StopInstancesInput{
				InstanceIds: []string{instanceID},
			})

			return out, classifyError(err, instanceID)
		})
	if err != nil {
		return nil, err
	}

	if len(out.StoppingInstances) == 0 {
		return nil, &InstanceNotFoundError{instanceID: instanceID}
	}

	return toStateChange(out.StoppingInstances[0]), nil
}

func (a *Adapter) RebootCommand(ctx context.Context, instanceID string) error {
	_, err := retry.Do(ctx, a.invoker, "reboot instance",
		func(ctx context.Context) (*ec2.RebootInstancesOutput, error) {
			out, err := a.client.RebootInstances(ctx, &ec2.RebootInstancesInput{
				InstanceIds: []string{instanceID},
			})

			return out, classifyError(err, instanceID)
		})

	return err
}

func (a *Adapter) describeOne(ctx context.Context, instanceID string) (*ec2types.Instance, error) {
	out, err := retry.Do(ctx, a.invoker, "describe instance",
		func(ctx context.Context) (*ec2.DescribeInstancesOutput, error) {
			out, err := a.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
				InstanceIds: []string{instanceID},
			})

			return out, classifyError(err, instanceID)
		})
	if err != nil {
		return nil, err
	}

	for i := range out.Reservations {
		if len(out.Reservations[i].Instances) > 0 {
			return &out.Reservations[i].Instances[0], nil
		}
	}

	return nil, &InstanceNotFoundError{instanceID: instanceID}
}

// describeManaged lists the whole tagged fleet. The listing is retried as a
// unit so a page-level throttle never yields a half fleet.
func (a *Adapter) describeManaged(ctx context.Context) ([]ec2types.Instance, error) {
	return retry.Do(ctx, a.invoker, "describe managed instances",
		func(ctx context.Context) ([]ec2types.Instance, error) {
			input := &ec2.DescribeInstancesInput{
				Filters: []ec2types.Filter{
					{
						Name:   aws.String(fmt.Sprintf("tag:%s", a.tagKey)),
						Values: []string{a.tagValue},
					},
				},
			}

			var instances []ec2types.Instance

			paginator := ec2.NewDescribeInstancesPaginator(a.client, input)
			for paginator.HasMorePages() {
				page, err := paginator.NextPage(ctx)
				if err != nil {
					return nil, classifyError(err, "")
				}

				for i := range page.Reservations {
					instances = append(instances, page.Reservations[i].Instances...)
				}
			}

			return instances, nil
		})
}

func toStateChange(change ec2types.InstanceStateChange) *control.StateChange {
	return &control.StateChange{
		Previous: control.LifecycleState(stateName(change.PreviousState)),
		Current:  control.LifecycleState(stateName(change.CurrentState)),
	}
}

package awsec2

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/ec2keeper/ec2keeper/internal/logic/alerting"
	"github.com/ec2keeper/ec2keeper/internal/logic/control"
)

func toDomainInstance(inst *ec2types.Instance, region string) control.Instance {
	out := control.Instance{
		ID:     aws.ToString(inst.InstanceId),
		State:  toDomainState(inst.State),
		Type:   string(inst.InstanceType),
		Region: region,
		Tags:   toDomainTags(inst.Tags),
	}

	out.PublicIP = aws.ToString(inst.PublicIpAddress)
	out.PrivateIP = aws.ToString(inst.PrivateIpAddress)

	// The control plane reports the launch time of the last start; it only
	// means "running since" while the instance is not stopped.
	if out.State == control.StateRunning || out.State == control.StatePending {
		out.LaunchTime = inst.LaunchTime
	}

	return out
}

func toAlertingInstance(inst *ec2types.Instance, region string) alerting.Instance {
	out := alerting.Instance{
		ID:       aws.ToString(inst.InstanceId),
		Type:     string(inst.InstanceType),
		Region:   region,
		PublicIP: aws.ToString(inst.PublicIpAddress),
		Running:  stateName(inst.State) == ec2types.InstanceStateNameRunning,
		Tags:     toDomainTags(inst.Tags),
	}

	if out.Running {
		out.LaunchTime = inst.LaunchTime
	}

	return out
}

func toDomainState(state *ec2types.InstanceState) control.LifecycleState {
	return control.LifecycleState(stateName(state))
}

func stateName(state *ec2types.InstanceState) ec2types.InstanceStateName {
	if state == nil {
		return ""
	}

	return state.Name
}

func toDomainTags(tags []ec2types.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}

	out := make(map[string]string, len(tags))
	for _, tag := range tags {
		out[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}

	return out
}

package provision

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Default node shape, matching the standard federated-learning node: one
// Fargate task behind a network load balancer on port 5000.
const (
	defaultImage     = "openmined/grid-node:production"
	defaultPort      = 5000
	defaultCPU       = 4096
	defaultMemoryMiB = 8192
)

func (s *NodeSpec) withDefaults() NodeSpec {
	out := *s
	if out.Image == "" {
		out.Image = defaultImage
	}
	if out.Port == 0 {
		out.Port = defaultPort
	}
	if out.CPU == 0 {
		out.CPU = defaultCPU
	}
	if out.MemoryMiB == 0 {
		out.MemoryMiB = defaultMemoryMiB
	}
	return out
}

// synthesize renders the deployment template for one node: a Fargate task
// definition and service on the shared cluster, fronted by an
// internet-facing network load balancer. The template publishes the load
// balancer DNS name and the ready node endpoint as stack outputs.
func synthesize(name string, spec NodeSpec) (string, error) {
	spec = spec.withDefaults()
	port := spec.Port

	env := make([]map[string]interface{}, 0, len(spec.Environment)+1)
	if _, ok := spec.Environment["NODE_ID"]; !ok {
		env = append(env, map[string]interface{}{"Name": "NODE_ID", "Value": name})
	}
	for k, v := range spec.Environment {
		env = append(env, map[string]interface{}{"Name": k, "Value": v})
	}

	template := map[string]interface{}{
		"AWSTemplateFormatVersion": "2010-09-09",
		"Description":              fmt.Sprintf("Compute node for model %s", name),
		"Resources": map[string]interface{}{
			"NodeLogGroup": map[string]interface{}{
				"Type": "AWS::Logs::LogGroup",
				"Properties": map[string]interface{}{
					"LogGroupName":    fmt.Sprintf("/node/%s", name),
					"RetentionInDays": 30,
				},
			},
			"NodeTaskDefinition": map[string]interface{}{
				"Type": "AWS::ECS::TaskDefinition",
				"Properties": map[string]interface{}{
					"Family":                  name,
					"Cpu":                     strconv.Itoa(spec.CPU),
					"Memory":                  strconv.Itoa(spec.MemoryMiB),
					"NetworkMode":             "awsvpc",
					"RequiresCompatibilities": []string{"FARGATE"},
					"ExecutionRoleArn":        spec.ExecutionRoleARN,
					"ContainerDefinitions": []map[string]interface{}{
						{
							"Name":         "node",
							"Image":        spec.Image,
							"PortMappings": []map[string]interface{}{{"ContainerPort": port}},
							"Environment":  env,
							"LogConfiguration": map[string]interface{}{
								"LogDriver": "awslogs",
								"Options": map[string]interface{}{
									"awslogs-group":         map[string]interface{}{"Ref": "NodeLogGroup"},
									"awslogs-region":        map[string]interface{}{"Ref": "AWS::Region"},
									"awslogs-stream-prefix": "Node",
								},
							},
						},
					},
				},
			},
			"NodeLoadBalancer": map[string]interface{}{
				"Type": "AWS::ElasticLoadBalancingV2::LoadBalancer",
				"Properties": map[string]interface{}{
					"Type":    "network",
					"Scheme":  "internet-facing",
					"Subnets": spec.SubnetIDs,
				},
			},
			"NodeTargetGroup": map[string]interface{}{
				"Type": "AWS::ElasticLoadBalancingV2::TargetGroup",
				"Properties": map[string]interface{}{
					"Port":       port,
					"Protocol":   "TCP",
					"TargetType": "ip",
					"VpcId":      spec.VPCID,
					"HealthCheckProtocol": "TCP",
				},
			},
			"NodeListener": map[string]interface{}{
				"Type": "AWS::ElasticLoadBalancingV2::Listener",
				"Properties": map[string]interface{}{
					"LoadBalancerArn": map[string]interface{}{"Ref": "NodeLoadBalancer"},
					"Port":            port,
					"Protocol":        "TCP",
					"DefaultActions": []map[string]interface{}{
						{"Type": "forward", "TargetGroupArn": map[string]interface{}{"Ref": "NodeTargetGroup"}},
					},
				},
			},
			"NodeService": map[string]interface{}{
				"Type":      "AWS::ECS::Service",
				"DependsOn": "NodeListener",
				"Properties": map[string]interface{}{
					"Cluster":        spec.Cluster,
					"DesiredCount":   1,
					"LaunchType":     "FARGATE",
					"TaskDefinition": map[string]interface{}{"Ref": "NodeTaskDefinition"},
					"NetworkConfiguration": map[string]interface{}{
						"AwsvpcConfiguration": map[string]interface{}{
							"AssignPublicIp": "ENABLED",
							"Subnets":        spec.SubnetIDs,
						},
					},
					"LoadBalancers": []map[string]interface{}{
						{
							"ContainerName":  "node",
							"ContainerPort":  port,
							"TargetGroupArn": map[string]interface{}{"Ref": "NodeTargetGroup"},
						},
					},
				},
			},
		},
		"Outputs": map[string]interface{}{
			OutputLoadBalancerDNS: map[string]interface{}{
				"Value": map[string]interface{}{"Fn::GetAtt": []string{"NodeLoadBalancer", "DNSName"}},
			},
			OutputNodeEndpoint: map[string]interface{}{
				"Value": map[string]interface{}{
					"Fn::Join": []interface{}{
						"",
						[]interface{}{
							map[string]interface{}{"Fn::GetAtt": []string{"NodeLoadBalancer", "DNSName"}},
							fmt.Sprintf(":%d", port),
						},
					},
				},
			},
		},
	}

	body, err := json.Marshal(template)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

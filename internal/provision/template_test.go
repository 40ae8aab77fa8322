package provision

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeTemplate(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	var tmpl map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &tmpl))
	return tmpl
}

func TestSynthesizeDefaults(t *testing.T) {
	body, err := synthesize("mnist-v1", NodeSpec{
		Cluster:   "nodes",
		VPCID:     "vpc-123",
		SubnetIDs: []string{"subnet-a", "subnet-b"},
	})
	require.NoError(t, err)
	tmpl := decodeTemplate(t, body)

	resources := tmpl["Resources"].(map[string]interface{})
	task := resources["NodeTaskDefinition"].(map[string]interface{})["Properties"].(map[string]interface{})
	assert.Equal(t, "mnist-v1", task["Family"])
	assert.Equal(t, "4096", task["Cpu"])
	assert.Equal(t, "8192", task["Memory"])

	container := task["ContainerDefinitions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "openmined/grid-node:production", container["Image"])

	// NODE_ID is injected when NodeSpec omits it.
	env := container["Environment"].([]interface{})
	found := false
	for _, e := range env {
		kv := e.(map[string]interface{})
		if kv["Name"] == "NODE_ID" {
			found = true
			assert.Equal(t, "mnist-v1", kv["Value"])
		}
	}
	assert.True(t, found, "NODE_ID must be present in the container environment")
}

func TestSynthesizeOverrides(t *testing.T) {
	body, err := synthesize("mnist-v1", NodeSpec{
		Image:     "example/custom-node:1",
		Port:      8080,
		CPU:       512,
		MemoryMiB: 1024,
	})
	require.NoError(t, err)
	tmpl := decodeTemplate(t, body)

	resources := tmpl["Resources"].(map[string]interface{})
	task := resources["NodeTaskDefinition"].(map[string]interface{})["Properties"].(map[string]interface{})
	assert.Equal(t, "512", task["Cpu"])
	container := task["ContainerDefinitions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "example/custom-node:1", container["Image"])

	listener := resources["NodeListener"].(map[string]interface{})["Properties"].(map[string]interface{})
	assert.Equal(t, float64(8080), listener["Port"])
}

func TestSynthesizePublishesEndpointOutputs(t *testing.T) {
	body, err := synthesize("mnist-v1", NodeSpec{})
	require.NoError(t, err)
	tmpl := decodeTemplate(t, body)

	outputs := tmpl["Outputs"].(map[string]interface{})
	require.Contains(t, outputs, OutputLoadBalancerDNS)
	require.Contains(t, outputs, OutputNodeEndpoint)

	// The endpoint output joins the balancer DNS name with the node port.
	endpoint := outputs[OutputNodeEndpoint].(map[string]interface{})["Value"].(map[string]interface{})
	join := endpoint["Fn::Join"].([]interface{})[1].([]interface{})
	assert.Equal(t, ":5000", join[1])
}

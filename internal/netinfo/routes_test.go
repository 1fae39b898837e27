package netinfo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRouteTable = `Iface	Destination	Gateway 	Flags	RefCnt	Use	Metric	Mask		MTU	Window	IRTT
eth0	00000000	0101A8C0	0003	0	0	100	00000000	0	0	0
eth0	0001A8C0	00000000	0001	0	0	100	00FFFFFF	0	0	0
tun0	00010A0A	0101000A	0003	0	0	50	00FFFFFF	0	0	0
`

func TestParseRoutes(t *testing.T) {
	routes, err := parseRoutes(strings.NewReader(sampleRouteTable))
	require.NoError(t, err)
	require.Len(t, routes, 3)

	assert.Equal(t, Route{
		Destination: "0.0.0.0/0",
		NextHop:     "192.168.1.1",
		Interface:   "eth0",
		Metric:      100,
	}, routes[0])

	assert.Equal(t, "192.168.1.0/24", routes[1].Destination)
	assert.Equal(t, "0.0.0.0", routes[1].NextHop)

	assert.Equal(t, "10.10.1.0/24", routes[2].Destination)
	assert.Equal(t, "10.0.1.1", routes[2].NextHop)
	assert.Equal(t, 50, routes[2].Metric)
}

func TestParseRoutesSkipsMalformedLines(t *testing.T) {
	input := sampleRouteTable + "garbage line\nwlan0\tZZZZZZZZ\t00000000\t0001\t0\t0\t0\t00FFFFFF\t0\t0\t0\n"
	routes, err := parseRoutes(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, routes, 3)
}

func TestParseRoutesEmptyTable(t *testing.T) {
	routes, err := parseRoutes(strings.NewReader("Iface\tDestination\tGateway\n"))
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestDefaultGatewayFrom(t *testing.T) {
	gw, iface, err := defaultGatewayFrom([]Route{
		{Destination: "192.168.1.0/24", NextHop: "0.0.0.0", Interface: "eth0"},
		{Destination: "0.0.0.0/0", NextHop: "192.168.1.1", Interface: "eth0"},
	})
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", gw)
	assert.Equal(t, "eth0", iface)
}

func TestDefaultGatewayFromMissing(t *testing.T) {
	_, _, err := defaultGatewayFrom([]Route{
		{Destination: "192.168.1.0/24", NextHop: "0.0.0.0", Interface: "eth0"},
	})
	assert.ErrorIs(t, err, ErrNoDefaultGateway)

	// An on-link pseudo-default does not count as a gateway.
	_, _, err = defaultGatewayFrom([]Route{
		{Destination: "0.0.0.0/0", NextHop: "0.0.0.0", Interface: "eth0"},
	})
	assert.ErrorIs(t, err, ErrNoDefaultGateway)
}

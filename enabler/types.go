package enabler

import (
	"strconv"

	"github.com/ruteri/apiml-sample-service/config"
)

const (
	StatusUp = "UP"

	defaultDataCenterClass = "com.netflix.appinfo.InstanceInfo$DefaultDataCenterInfo"
	defaultDataCenterName  = "MyOwn"
)

// registrationRequest is the body of the Eureka register call.
type registrationRequest struct {
	Instance InstanceInfo `json:"instance"`
}

// InstanceInfo is the Eureka representation of this service instance.
type InstanceInfo struct {
	InstanceID       string            `json:"instanceId"`
	App              string            `json:"app"`
	HostName         string            `json:"hostName"`
	IPAddr           string            `json:"ipAddr"`
	VipAddress       string            `json:"vipAddress"`
	SecureVipAddress string            `json:"secureVipAddress"`
	Status           string            `json:"status"`
	Port             PortInfo          `json:"port"`
	SecurePort       PortInfo          `json:"securePort"`
	HomePageURL      string            `json:"homePageUrl,omitempty"`
	StatusPageURL    string            `json:"statusPageUrl,omitempty"`
	HealthCheckURL   string            `json:"healthCheckUrl,omitempty"`
	DataCenterInfo   DataCenterInfo    `json:"dataCenterInfo"`
	LeaseInfo        LeaseInfo         `json:"leaseInfo"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type PortInfo struct {
	Number  int    `json:"$"`
	Enabled string `json:"@enabled"`
}

type DataCenterInfo struct {
	Class string `json:"@class"`
	Name  string `json:"name"`
}

type LeaseInfo struct {
	RenewalIntervalInSecs int `json:"renewalIntervalInSecs"`
	DurationInSecs        int `json:"durationInSecs"`
}

func newInstanceInfo(inst config.Instance) InstanceInfo {
	return InstanceInfo{
		InstanceID:       inst.InstanceID,
		App:              inst.App,
		HostName:         inst.HostName,
		IPAddr:           inst.IPAddr,
		VipAddress:       inst.VipAddress,
		SecureVipAddress: inst.SecureVipAddress,
		Status:           StatusUp,
		Port:             newPortInfo(inst.Port),
		SecurePort:       newPortInfo(inst.SecurePort),
		HomePageURL:      inst.HomePageURL,
		StatusPageURL:    inst.StatusPageURL,
		HealthCheckURL:   inst.HealthCheckURL,
		DataCenterInfo: DataCenterInfo{
			Class: defaultDataCenterClass,
			Name:  defaultDataCenterName,
		},
		LeaseInfo: LeaseInfo{
			RenewalIntervalInSecs: inst.LeaseRenewalIntervalInSeconds,
			DurationInSecs:        inst.LeaseDurationInSeconds,
		},
		Metadata: inst.Metadata,
	}
}

func newPortInfo(p config.Port) PortInfo {
	return PortInfo{Number: p.Number, Enabled: strconv.FormatBool(p.Enabled)}
}

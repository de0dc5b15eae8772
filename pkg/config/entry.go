package config

import "fmt"

// Communication is the serial link part of a config entry.
type Communication struct {
	Port        string `json:"port"`
	ModuleCount int    `json:"module_count"`
}

// EntryData is the payload of a config entry's data and options.
type EntryData struct {
	Communication Communication  `json:"communication"`
	Devices       []DeviceConfig `json:"devices"`
}

// Clone returns a deep copy of the device list and communication block.
func (e EntryData) Clone() EntryData {
	out := EntryData{Communication: e.Communication}
	out.Devices = append([]DeviceConfig(nil), e.Devices...)
	return out
}

// EntryTitle is the title given to an entry created for port.
func EntryTitle(port string) string {
	return fmt.Sprintf("GryfSmart: %s", port)
}

// Effective merges data with options. Options written by the options flow
// replace the stored data wholesale.
func Effective(data EntryData, options *EntryData) EntryData {
	if options == nil {
		return data
	}
	out := options.Clone()
	if out.Communication.Port == "" {
		out.Communication.Port = data.Communication.Port
	}
	if out.Communication.ModuleCount == 0 {
		out.Communication.ModuleCount = data.Communication.ModuleCount
	}
	return out
}

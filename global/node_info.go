package global

import (
	"encoding/json"

	"github.com/lunfardo314/notary/util"
	"github.com/lunfardo314/notary/util/lines"
)

type NodeInfo struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Commit   string   `json:"commit"`
	Notaries []string `json:"notaries"`
	DBType   string   `json:"db_type"`
	Ready    bool     `json:"ready"`
}

func (ni *NodeInfo) Bytes() []byte {
	ret, err := json.Marshal(ni)
	util.AssertNoError(err)
	return ret
}

func NodeInfoFromBytes(data []byte) (*NodeInfo, error) {
	var ret NodeInfo
	err := json.Unmarshal(data, &ret)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (ni *NodeInfo) Lines(prefix ...string) *lines.Lines {
	ret := lines.New(prefix...)
	ret.Add("Node info:").
		Add("   name: '%s'", ni.Name).
		Add("   version: %s", ni.Version).
		Add("   commit: %s", ni.Commit).
		Add("   database: %s", ni.DBType).
		Add("   ready: %v", ni.Ready).
		Add("   notaries (%d):", len(ni.Notaries))
	for _, n := range ni.Notaries {
		ret.Add("      %s", n)
	}
	return ret
}

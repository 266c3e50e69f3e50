package codec

import (
	"fmt"
	"io"
	"strings"

	"daf/internal/domain"

	"gopkg.in/yaml.v3"
)

// UnannotatedGroup collects hosts without a final group
const UnannotatedGroup = "unannotated"

// AnsibleCodec exports a snapshot as an Ansible inventory. Hosts are grouped
// by their final device group and carry the other fields as host vars.
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier
func (c *AnsibleCodec) Format() string {
	return "ansible-inventory"
}

// ansibleInventory represents the Ansible inventory structure
type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Children map[string]ansibleGroupDef `yaml:"children,omitempty"`
}

type ansibleGroupDef struct {
	Hosts map[string]ansibleHost `yaml:"hosts,omitempty"`
}

type ansibleHost struct {
	AnsibleHost string                 `yaml:"ansible_host,omitempty"`
	Vars        map[string]interface{} `yaml:",inline"`
}

// groupName turns a taxonomy label into a valid inventory group name
func groupName(label string) string {
	if label == "" {
		return UnannotatedGroup
	}
	return strings.NewReplacer("-", "_", " ", "_", ".", "_").Replace(label)
}

// hostID names an inventory host after its address
func hostID(addr string) string {
	return "ip_" + strings.NewReplacer(".", "_", ":", "_").Replace(addr)
}

// Parse reads an inventory written by Export back into final annotations.
// Conflict details are not part of the inventory.
func (c *AnsibleCodec) Parse(r io.Reader) (domain.Snapshot, error) {
	var inv ansibleInventory
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&inv); err != nil {
		return nil, fmt.Errorf("failed to parse Ansible inventory: %w", err)
	}

	snapshot := make(domain.Snapshot)
	for _, group := range inv.All.Children {
		for id, host := range group.Hosts {
			if host.AnsibleHost == "" {
				return nil, fmt.Errorf("host %s has no ansible_host", id)
			}
			entry := domain.Entry{}
			for _, f := range domain.Fields {
				if v, ok := host.Vars[varName(f)].(string); ok {
					entry.Final.Set(f, v)
				}
			}
			if flags, ok := host.Vars["daf_flags"].([]interface{}); ok {
				for _, fl := range flags {
					entry.Flags = entry.Flags.With(domain.Flag(fmt.Sprint(fl)))
				}
			}
			snapshot[host.AnsibleHost] = entry
		}
	}
	return snapshot, nil
}

func varName(f domain.Field) string {
	return "daf_" + strings.ReplaceAll(string(f), "-", "_")
}

// Export writes the snapshot as an Ansible inventory
func (c *AnsibleCodec) Export(s domain.Snapshot, w io.Writer) error {
	inv := ansibleInventory{
		All: ansibleGroup{
			Children: make(map[string]ansibleGroupDef),
		},
	}

	for _, addr := range s.Addresses() {
		entry := s[addr]
		name := groupName(entry.Final.Group)
		group, ok := inv.All.Children[name]
		if !ok {
			group = ansibleGroupDef{Hosts: make(map[string]ansibleHost)}
			inv.All.Children[name] = group
		}

		host := ansibleHost{
			AnsibleHost: addr,
			Vars:        make(map[string]interface{}),
		}
		for _, f := range domain.Fields {
			if v := entry.Final.Get(f); v != "" {
				host.Vars[varName(f)] = v
			}
		}
		if len(entry.Flags) > 0 {
			flags := make([]string, 0, len(entry.Flags))
			for _, fl := range entry.Flags {
				flags = append(flags, string(fl))
			}
			host.Vars["daf_flags"] = flags
		}
		group.Hosts[hostID(addr)] = host
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}

	return nil
}

package annotator

// Builtins maps configuration names to the built-in factories
var Builtins = map[string]Factory{
	HandAnnotatorName:     NewHandAnnotator,
	"mac_annotator":       NewMACAnnotator,
	"sni_annotator":       NewSNIAnnotators,
	"useragent_annotator": NewUserAgentAnnotator,
	"hostname_annotator":  NewHostnameAnnotator,
	"shodan_annotator":    NewShodanAnnotator,
	"nmap_annotator":      NewNmapAnnotatorFromConfig,
	"ssh_annotator":       NewSSHAnnotator,
	"nat_detector":        NewNATDetector,
}

// RegisterBuiltins registers every built-in factory with r
func RegisterBuiltins(r *Registry) error {
	for name, f := range Builtins {
		if err := r.RegisterFactory(name, f); err != nil {
			return err
		}
	}
	return nil
}

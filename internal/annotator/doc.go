// Package annotator implements the annotator contract, the shared proposal
// store and the registry that orchestrates annotator runs.
//
// # Annotators
//
// An annotator receives the list of IP addresses to annotate and the flows
// grouped by source IP. It emits proposals (partial annotations) and
// multi-device signals through its Proposer. Annotators never see the final
// annotation; voting happens after every annotator has finished.
//
// # Built-in annotators
//
// hand_annotator reads hand-crafted rules keyed by address, network or range.
// mac_annotator maps MAC OUIs to OS families. sni_annotator and
// useragent_annotator classify TLS SNI hosts and HTTP User-Agents seen in the
// flows. hostname_annotator classifies reverse DNS names. shodan_annotator
// queries Shodan and caches responses in pebble. nmap_annotator and
// ssh_annotator actively probe hosts. nat_detector reports hosts that look
// like several devices behind one address.
//
// # Registry
//
// Registry maps configuration names to factories, builds the enabled
// annotators and runs them in parallel or sequentially. Proposals are staged
// per annotator and committed to the Store only when the annotator succeeds,
// so a failed annotator contributes nothing.
package annotator

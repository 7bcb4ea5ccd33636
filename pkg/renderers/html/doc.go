// Package html ships a small set of server-side HTML capabilities
// (Container, Text, List, Actions) and a themed page wrapper. They are meant
// for development, the CLI, and as a reference for hosts writing their own
// widgets; production hosts usually register their own capabilities.
package html

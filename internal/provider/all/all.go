// Package all registers every built-in DNS provider.
package all

import (
	_ "github.com/rsclarke/ddnsd/internal/provider/cloudflare"
	_ "github.com/rsclarke/ddnsd/internal/provider/memory"
)

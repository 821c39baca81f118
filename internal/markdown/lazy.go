// SPDX-License-Identifier: GPL-3.0-or-later

package markdown

import "github.com/doipkit/doipkit/internal/cliutils"

// LazyMaybeRender returns a [cliutils.LazyHelpRenderer] that
// attempts to render the provided help string using markdown by
// calling [TryRender] when the help is requested.
func LazyMaybeRender(help string) cliutils.LazyHelpRenderer {
	return cliutils.LazyHelpRendererFunc(func() string {
		return TryRender(help)
	})
}

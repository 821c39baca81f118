// SPDX-License-Identifier: GPL-3.0-or-later

package scenario

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/doipkit/doipkit/internal/fsx"
)

// Load reads and concatenates the step lists found in paths, in order.
func Load(fsys fsx.FS, paths []string) (StepList, error) {
	var out StepList
	for _, path := range paths {
		data, err := fsx.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("scenario: reading %s: %w", path, err)
		}
		var steps StepList
		if err := yaml.Unmarshal(data, &steps); err != nil {
			return nil, fmt.Errorf("scenario: parsing %s: %w", path, err)
		}
		out = append(out, steps...)
	}
	return out, nil
}

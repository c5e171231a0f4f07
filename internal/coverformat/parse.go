package coverformat

import (
	"encoding/json"
	"fmt"
	"os"
)

// Parse parses a .cover file from a byte slice
func Parse(data []byte) (*Project, error) {
	// Unmarshal into a wrapper first to capture the legacy cover image fields
	var temp struct {
		Project
		CoverImage    string `json:"coverImage,omitempty"`    // Legacy field
		CoverImageURL string `json:"coverImageUrl,omitempty"` // Legacy field
	}

	if err := json.Unmarshal(data, &temp); err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}

	project := temp.Project

	// Older projects stored the front image on the project, not the design
	if project.Design.FrontCoverImageURL == "" {
		switch {
		case temp.CoverImageURL != "":
			project.Design.FrontCoverImageURL = temp.CoverImageURL
		case temp.CoverImage != "":
			project.Design.FrontCoverImageURL = temp.CoverImage
		}
	}

	MigrateDesign(&project.Design)

	if err := Validate(&project); err != nil {
		return nil, err
	}

	return &project, nil
}

// MigrateDesign rewrites deprecated fields in place. The blurb box used to be
// positioned by an x offset and width; it is now centred with a symmetric
// left/right margin.
func MigrateDesign(d *DesignOptions) {
	if d.BackCoverBlurbBoxLeftMarginPercent == nil {
		switch {
		case d.BackCoverBlurbBoxWidthPercent != nil:
			d.BackCoverBlurbBoxLeftMarginPercent = Float((100 - *d.BackCoverBlurbBoxWidthPercent) / 2)
		case d.BackCoverBlurbBoxXOffsetPercent != nil:
			d.BackCoverBlurbBoxLeftMarginPercent = Float(*d.BackCoverBlurbBoxXOffsetPercent)
		}
	}
	d.BackCoverBlurbBoxWidthPercent = nil
	d.BackCoverBlurbBoxXOffsetPercent = nil
}

// ParseFile parses a .cover file from disk
func ParseFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	return Parse(data)
}

// ToJSON converts a Project to JSON bytes
func (p *Project) ToJSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// SaveToFile saves a Project to a file
func (p *Project) SaveToFile(path string) error {
	data, err := p.ToJSON()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

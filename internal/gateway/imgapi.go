/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package gateway

import (
	"context"
	"io"

	"go.smartdc.io/fleetadm/internal/domain"
)

// IMGAPI wraps an image registry. The Gateway builds two: one for the
// local registry and one for the update registry (remote), distinguished
// by the base URL they were constructed with — the image catalog's
// fallback logic decides which to call and in which order.
type IMGAPI struct {
	client *client
}

type imageRecord struct {
	UUID  string            `json:"uuid"`
	Name  string            `json:"name"`
	Version string          `json:"version"`
	Published string        `json:"published_at"`
	Size  int64             `json:"size"`
	Tags  map[string]string `json:"tags"`
}

func (img imageRecord) toDomain() (domain.Image, error) {
	out := domain.Image{
		ID:          img.UUID,
		ServiceName: img.Name,
		Version:     img.Version,
		FileSize:    img.Size,
		Tags:        img.Tags,
	}
	if img.Published != "" {
		if t, err := parseTime(img.Published); err == nil {
			out.PublishTime = t
		}
	}
	return out, nil
}

// GetImage fetches one image by UUID.
func (i *IMGAPI) GetImage(ctx context.Context, uuid string) (domain.Image, error) {
	var img imageRecord
	if err := i.client.doJSON(ctx, "imgapi.GetImage", "GET", "/images/"+uuid, nil, &img); err != nil {
		return domain.Image{}, err
	}
	return img.toDomain()
}

// ListImages lists images filtered by name and an (upstream-defined)
// version pattern such as "~master".
func (i *IMGAPI) ListImages(ctx context.Context, name, versionPattern string) ([]domain.Image, error) {
	path := "/images?name=" + name
	if versionPattern != "" {
		path += "&version=" + versionPattern
	}
	var records []imageRecord
	if err := i.client.doJSON(ctx, "imgapi.ListImages", "GET", path, nil, &records); err != nil {
		return nil, err
	}
	out := make([]domain.Image, 0, len(records))
	for _, r := range records {
		img, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

// Download streams an image's file to w.
func (i *IMGAPI) Download(ctx context.Context, uuid string, w io.Writer) error {
	return i.client.download(ctx, "imgapi.Download", "/images/"+uuid+"/file", w)
}

// AdminImport creates a placeholder image record from a manifest fetched
// from another registry, the first of the three calls (import, add-file,
// activate) that bring a remote image fully local.
func (i *IMGAPI) AdminImport(ctx context.Context, manifest domain.Image) error {
	body := imageRecord{
		UUID:    manifest.ID,
		Name:    manifest.ServiceName,
		Version: manifest.Version,
		Size:    manifest.FileSize,
		Tags:    manifest.Tags,
	}
	return i.client.doJSON(ctx, "imgapi.AdminImport", "POST", "/images?action=import", body, nil)
}

// AddImageFile uploads an imported image's file content, streamed straight
// from r (typically another registry's Download).
func (i *IMGAPI) AddImageFile(ctx context.Context, uuid string, r io.Reader) error {
	return i.client.upload(ctx, "imgapi.AddImageFile", "PUT", "/images/"+uuid+"/file", r)
}

// Activate marks an imported image ready for use, the final step after
// AdminImport and AddImageFile.
func (i *IMGAPI) Activate(ctx context.Context, uuid string) error {
	return i.client.doJSON(ctx, "imgapi.Activate", "POST", "/images/"+uuid+"?action=activate", nil, nil)
}

// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mailbox

import (
	"strings"
	"time"

	"github.com/bcem/staysync/internal/models"
)

// graphMessage holds the fields of a Graph message the pipeline uses.
type graphMessage struct {
	ID               string `json:"id"`
	Subject          string `json:"subject"`
	ReceivedDateTime string `json:"receivedDateTime"`
	From             struct {
		EmailAddress struct {
			Address string `json:"address"`
			Name    string `json:"name"`
		} `json:"emailAddress"`
	} `json:"from"`
	Body struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	BodyPreview    string `json:"bodyPreview"`
	ParentFolderID string `json:"parentFolderId"`
}

// toEmail converts a Graph message. HTML bodies keep the preview as the
// plain-text body; text bodies have no HTML part.
func (m graphMessage) toEmail() models.EmailMessage {
	msg := models.EmailMessage{
		ID:      m.ID,
		Subject: m.Subject,
		Sender:  m.From.EmailAddress.Address,
		Folder:  m.ParentFolderID,
	}
	if t, err := time.Parse(time.RFC3339, m.ReceivedDateTime); err == nil {
		msg.ReceivedAt = t.UTC()
	}

	if strings.EqualFold(m.Body.ContentType, "html") {
		msg.HTMLBody = m.Body.Content
		msg.TextBody = m.BodyPreview
	} else {
		msg.TextBody = m.Body.Content
	}
	return msg
}

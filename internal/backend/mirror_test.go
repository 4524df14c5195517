/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"os"
	"testing"

	"chapterpress/internal/domain"
)

// Integration test; needs a reachable Postgres. Set CHP_PG_TEST_DSN to run.
func TestMirrorRoundTrip(t *testing.T) {
	dsn := os.Getenv("CHP_PG_TEST_DSN")
	if dsn == "" {
		t.Skip("CHP_PG_TEST_DSN not set")
	}
	ctx := context.Background()
	m, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer m.Close()

	id, err := m.AddHistory(ctx, domain.HistoryRecord{Title: "Ch 1", URL: "https://telegra.ph/Ch-1", ImageCount: 12, TitleID: 1})
	if err != nil {
		t.Fatalf("AddHistory error: %v", err)
	}
	if id == 0 {
		t.Fatalf("id = 0")
	}
	recent, err := m.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(recent) == 0 || recent[0].ID < id {
		t.Fatalf("recent = %+v", recent)
	}
}

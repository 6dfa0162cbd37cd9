// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

/*
bio-bed-merge merges the features of BED files into maximal runs, and combines
pairs of loci CSV files with set operations.

  bio-bed-merge merge -out merged.bed -join-len 10 a.bed 'dir/*.bed.gz'
  bio-bed-merge overlay -out out.csv -op intersect ref.csv rel.csv

The exit code is 0 on success and the negated status code otherwise, e.g. 1
for a file that cannot be opened and 8 for a malformed input.
*/

import "github.com/grailbio/bedmerge/cmd/bio-bed-merge/cmd"

func main() {
	cmd.Run()
}

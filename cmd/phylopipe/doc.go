// 19 Feb 2026

/*

Phylopipe fetches flagellin protein sequences from NCBI, aligns them
and builds phylogenetic trees with external tools.
Usage:
	phylopipe [options]

Flags:
	-c file
		yaml configuration: species list, alignment method, tree
		methods, output directory. Without it the built-in flagellin
		analysis runs.
	-o dir
		output directory, overriding the config.
	-a method
		alignment method, one of mafft, clustalo, muscle.
	-n
		dry run. Print the plan and stop.
	-remote
		run the tools on a Galaxy server instead of locally. Needs
		GALAXY_API_KEY in the environment and galaxy_url in the config.
	-v level
		verbosity. 0 says nothing unless something goes wrong.

The steps are fixed: one protein record per (gene, organism) pair is
fetched from NCBI and written to its own fasta file, the files are
concatenated, the combined file is aligned with one tool and the
alignment goes to every enabled tree builder. The builders run
concurrently and independently. One failing does not stop the others,
but any failure makes the exit status non-zero.

The aligners and tree builders are not bundled. mafft, clustalo,
muscle, FastTree, raxmlHPC-PTHREADS and iqtree must be on PATH for
whichever methods are enabled.

ENTREZ_EMAIL must be set. NCBI's usage policy wants a contact address
with every query, and we will not invent one. NCBI_API_KEY is passed
along if present but is not needed at this scale.

Exit status is 0 when every step succeeded, 1 on any failure and 2
for a usage or configuration mistake.

*/
package main

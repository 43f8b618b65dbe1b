package report

// BuildName identifies a CI build variant.
type BuildName string

const (
	PackageRelease         BuildName = "package_release"
	PackageASan            BuildName = "package_asan"
	PackageUBSan           BuildName = "package_ubsan"
	PackageTSan            BuildName = "package_tsan"
	PackageMSan            BuildName = "package_msan"
	PackageDebug           BuildName = "package_debug"
	PackageAArch64         BuildName = "package_aarch64"
	PackageAArch64ASan     BuildName = "package_aarch64_asan"
	PackageReleaseCoverage BuildName = "package_release_coverage"
	BinaryRelease          BuildName = "binary_release"
	BinaryTidy             BuildName = "binary_tidy"
	BinaryDarwin           BuildName = "binary_darwin"
	BinaryAArch64          BuildName = "binary_aarch64"
	BinaryAArch64V80Compat BuildName = "binary_aarch64_v80compat"
	BinaryFreeBSD          BuildName = "binary_freebsd"
	BinaryDarwinAArch64    BuildName = "binary_darwin_aarch64"
	BinaryPPC64LE          BuildName = "binary_ppc64le"
	BinaryAMD64Compat      BuildName = "binary_amd64_compat"
	BinaryAMD64Musl        BuildName = "binary_amd64_musl"
	BinaryRISCV64          BuildName = "binary_riscv64"
	BinaryS390X            BuildName = "binary_s390x"
	BinaryLoongArch64      BuildName = "binary_loongarch64"
	Fuzzers                BuildName = "fuzzers"
)

// BuildToReport maps each build to the report file its job writes.
// Treat it as read-only.
var BuildToReport = map[BuildName]string{
	PackageRelease:         "artifact_report_build_amd_release.json",
	PackageASan:            "artifact_report_build_amd_asan.json",
	PackageUBSan:           "artifact_report_build_amd_ubsan.json",
	PackageTSan:            "artifact_report_build_amd_tsan.json",
	PackageMSan:            "artifact_report_build_amd_msan.json",
	PackageDebug:           "artifact_report_build_amd_debug.json",
	PackageAArch64:         "artifact_report_build_arm_release.json",
	PackageAArch64ASan:     "artifact_report_build_arm_asan.json",
	PackageReleaseCoverage: "artifact_report_build_arm_coverage.json",
	BinaryRelease:          "artifact_report_build_amd_binary.json",
	BinaryTidy:             "artifact_report_build_amd_tidy.json",
	BinaryDarwin:           "artifact_report_build_amd_darwin.json",
	BinaryAArch64:          "artifact_report_build_arm_binary.json",
	BinaryAArch64V80Compat: "artifact_report_build_arm_v80compat.json",
	BinaryFreeBSD:          "artifact_report_build_amd_freebsd.json",
	BinaryDarwinAArch64:    "artifact_report_build_arm_darwin.json",
	BinaryPPC64LE:          "artifact_report_build_ppc64le.json",
	BinaryAMD64Compat:      "artifact_report_build_amd_compat.json",
	BinaryAMD64Musl:        "artifact_report_build_amd_musl.json",
	BinaryRISCV64:          "artifact_report_build_riscv64.json",
	BinaryS390X:            "artifact_report_build_s390x.json",
	BinaryLoongArch64:      "artifact_report_build_loongarch.json",
	Fuzzers:                "artifact_report_build_fuzzers.json",
}
